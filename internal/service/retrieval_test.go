package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/conversation"
	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/retrieval"
)

// memoryMessages is an in-process message store.
type memoryMessages struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (m *memoryMessages) RecentMessages(_ context.Context, sessionID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.msgs {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryMessages) Append(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

// stubKnowledge serves fixed knowledge items.
type stubKnowledge struct {
	byCode map[string][]domain.KnowledgeItem
	text   []domain.KnowledgeItem
}

func (s *stubKnowledge) FindByCode(_ context.Context, code string, _ int) ([]domain.KnowledgeItem, error) {
	return s.byCode[code], nil
}

func (s *stubKnowledge) SearchText(_ context.Context, _ []string, _ int) ([]domain.KnowledgeItem, error) {
	return s.text, nil
}

// fixedStrategy returns the same results for every query.
type fixedStrategy struct {
	name    string
	results []domain.SearchResult
}

func (f *fixedStrategy) Name() string            { return f.name }
func (f *fixedStrategy) Kind() domain.SourceKind { return domain.SourceWeb }
func (f *fixedStrategy) Search(context.Context, retrieval.Input) ([]domain.SearchResult, error) {
	return f.results, nil
}

// MockSearchLogRepository mocks search log persistence
type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

type stubRetriever struct {
	calls int
	resp  *domain.SearchResponse
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, _ domain.QueryClassification) *domain.SearchResponse {
	s.calls++
	if s.resp != nil {
		return s.resp
	}
	return &domain.SearchResponse{Query: query}
}

func newRetrievalService(store *memoryMessages, retriever Retriever, logs SearchLogRepository) *RetrievalService {
	builder := conversation.NewBuilder(store, conversation.DefaultConfig(), nil)
	return NewRetrievalService(builder, retriever, logs, RetrievalConfig{AutoSearch: true}, nil, nil)
}

func TestRetrieveAndBuildContext_ValidatesInput(t *testing.T) {
	svc := newRetrievalService(&memoryMessages{}, &stubRetriever{}, nil)
	ctx := context.Background()

	_, err := svc.RetrieveAndBuildContext(ctx, " ", "fees", false)
	assert.ErrorIs(t, err, domain.ErrSessionRequired)

	_, err = svc.RetrieveAndBuildContext(ctx, "s1", "   ", false)
	assert.ErrorIs(t, err, domain.ErrQueryRequired)

	_, err = svc.RetrieveAndBuildContext(ctx, "s1", strings.Repeat("a", MaxQueryLength+1), false)
	assert.ErrorIs(t, err, domain.ErrQueryTooLong)
}

// Scenario A: an exact course-code record ranks first.
func TestRetrieveAndBuildContext_CourseCodeRecordFirst(t *testing.T) {
	record := domain.KnowledgeItem{
		ID:          "kb-cosc2123",
		Title:       "Algorithms and Analysis",
		Content:     "Enforced prerequisites: none. Assumed knowledge: programming and discrete maths.",
		SourceURL:   "https://www.rmit.edu.au/courses/004302",
		EntityCodes: []string{"COSC2123"},
		Priority:    8,
	}
	knowledge := retrieval.NewKnowledgeSearch(&stubKnowledge{
		byCode: map[string][]domain.KnowledgeItem{"COSC2123": {record}},
	}, nil, nil)
	web := &fixedStrategy{name: "web", results: []domain.SearchResult{
		domain.NewSearchResult("w1", "Prerequisites and requisites explained", "How prerequisites work at RMIT.",
			"https://www.rmit.edu.au/students/prerequisites", domain.SourceWeb, 0.99, "COSC2123 prerequisites", time.Now()),
		domain.NewSearchResult("w2", "Course prerequisites FAQ", "Prerequisites for every course.",
			"https://www.rmit.edu.au/students/faq/prerequisites", domain.SourceWeb, 0.98, "COSC2123 prerequisites", time.Now()),
	}}
	agg := retrieval.NewAggregator(retrieval.DefaultConfig(), []retrieval.Strategy{web, knowledge},
		retrieval.NewStaticLinks(retrieval.DefaultLinkCatalogue()))

	svc := newRetrievalService(&memoryMessages{}, agg, nil)
	out, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "COSC2123 prerequisites", false)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCourse, out.Classification.PrimaryCategory)
	assert.Equal(t, "COSC2123", out.Classification.Entities.CourseCode)
	assert.True(t, out.Decision.Search)
	require.NotNil(t, out.Search)
	require.NotEmpty(t, out.Search.Results)
	assert.Equal(t, record.SourceURL, out.Search.Results[0].URL)
	assert.Equal(t, "COSC2123", out.Search.Results[0].EntityCode)
}

// Scenario B: small talk does not search and yields an empty context.
func TestRetrieveAndBuildContext_SmallTalk(t *testing.T) {
	retriever := &stubRetriever{}
	svc := newRetrievalService(&memoryMessages{}, retriever, nil)

	out, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "hi there", false)

	require.NoError(t, err)
	assert.False(t, out.Decision.Search)
	assert.Equal(t, intent.RuleSmallTalk, out.Decision.Rule)
	assert.Nil(t, out.Search)
	assert.Empty(t, out.Context.Topics)
	assert.True(t, out.Context.Entities.IsEmpty())
	assert.Zero(t, retriever.calls)
}

// Scenario C: a follow-up resolves to the program named in the previous turn.
func TestRetrieveAndBuildContext_FollowupUsesPriorProgram(t *testing.T) {
	store := &memoryMessages{}
	retriever := &stubRetriever{}
	svc := newRetrievalService(store, retriever, nil)
	ctx := context.Background()

	first, err := svc.RetrieveAndBuildContext(ctx, "s1", "Bachelor of Computer Science", false)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryProgram, first.Classification.PrimaryCategory)

	require.NoError(t, store.Append(ctx, domain.NewMessage("m1", "s1", domain.RoleUser, "Bachelor of Computer Science", time.Now())))
	require.NoError(t, store.Append(ctx, domain.NewMessage("m2", "s1", domain.RoleAssistant, "It is a three year degree.", time.Now())))

	second, err := svc.RetrieveAndBuildContext(ctx, "s1", "what are the prerequisites?", false)
	require.NoError(t, err)

	assert.Equal(t, "Bachelor of Computer Science", second.Context.Focus.ProgramName)
	assert.Equal(t, domain.CategoryProgram, second.Classification.PrimaryCategory)
	assert.Equal(t, "Bachelor of Computer Science", second.Classification.Entities.ProgramName)
	assert.True(t, second.Classification.UsedPriorContext)
	assert.True(t, second.Decision.Search)
}

// Scenario D: the web API times out and the knowledge store's two items survive.
func TestRetrieveAndBuildContext_WebTimeoutKeepsKnowledge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	web := retrieval.NewWebSearch(retrieval.WebSearchConfig{
		APIKey:  "key",
		URL:     srv.URL,
		Domain:  "rmit.edu.au",
		Timeout: 50 * time.Millisecond,
	}, srv.Client())
	items := []domain.KnowledgeItem{
		{ID: "k1", Title: "Data Science electives", Content: "Choose data science electives from the approved list.",
			SourceURL: "https://www.rmit.edu.au/students/data-science-electives", Priority: 7},
		{ID: "k2", Title: "Master of Data Science electives", Content: "Electives for the Master of Data Science.",
			SourceURL: "https://www.rmit.edu.au/study-with-us/master-of-data-science/electives", Priority: 6},
	}
	knowledge := retrieval.NewKnowledgeSearch(&stubKnowledge{text: items}, nil, nil)

	cfg := retrieval.DefaultConfig()
	cfg.Deadline = 2 * time.Second
	agg := retrieval.NewAggregator(cfg, []retrieval.Strategy{web, knowledge},
		retrieval.NewStaticLinks(retrieval.DefaultLinkCatalogue()))

	svc := newRetrievalService(&memoryMessages{}, agg, nil)
	out, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "data science electives", false)

	require.NoError(t, err)
	require.NotNil(t, out.Search)

	var fromStore []string
	for _, r := range out.Search.Results {
		assert.NotEqual(t, domain.SourceWeb, r.Source)
		if r.Source == domain.SourceKnowledgeStore {
			fromStore = append(fromStore, r.URL)
		}
	}
	assert.ElementsMatch(t, []string{items[0].SourceURL, items[1].SourceURL}, fromStore)
	assert.Equal(t, 2, out.Search.SourceCounts[domain.SourceKnowledgeStore])
	assert.False(t, out.Search.Degraded)
}

func TestRetrieveAndBuildContext_ForceAndAutoSearch(t *testing.T) {
	retriever := &stubRetriever{}
	builder := conversation.NewBuilder(&memoryMessages{}, conversation.DefaultConfig(), nil)
	svc := NewRetrievalService(builder, retriever, nil, RetrievalConfig{AutoSearch: false}, nil, nil)

	out, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "COSC2123 prerequisites", false)
	require.NoError(t, err)
	assert.Equal(t, intent.RuleAutoDisabled, out.Decision.Rule)
	assert.Nil(t, out.Search)

	out, err = svc.RetrieveAndBuildContext(context.Background(), "s1", "hello", true)
	require.NoError(t, err)
	assert.Equal(t, intent.RuleForced, out.Decision.Rule)
	assert.NotNil(t, out.Search)
	assert.Equal(t, 1, retriever.calls)
}

func TestRetrieveAndBuildContext_RecordsSearchLog(t *testing.T) {
	logs := new(MockSearchLogRepository)
	retriever := &stubRetriever{resp: &domain.SearchResponse{
		Query: "fees for BP094",
		Results: []domain.SearchResult{
			domain.NewSearchResult("r1", "Fees", "Fees for BP094", "https://www.rmit.edu.au/fees", domain.SourceWeb, 0.8, "fees for BP094", time.Now()),
		},
		Cached: true,
	}}
	logs.On("CreateSearchLog", mock.Anything, mock.MatchedBy(func(e SearchLogEntry) bool {
		return e.SessionID == "s1" && e.Searched && e.ResultCount == 1 &&
			e.TopURL == "https://www.rmit.edu.au/fees" && e.Cached && len(e.Results) == 1 &&
			e.Category == string(domain.CategoryProgram)
	})).Return("log-1", nil)

	svc := newRetrievalService(&memoryMessages{}, retriever, logs)
	_, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "fees for BP094", false)

	require.NoError(t, err)
	logs.AssertExpectations(t)
}

func TestRetrieveAndBuildContext_SearchLogFailureIgnored(t *testing.T) {
	logs := new(MockSearchLogRepository)
	logs.On("CreateSearchLog", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	svc := newRetrievalService(&memoryMessages{}, &stubRetriever{}, logs)
	out, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "hi", false)

	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestRetrieveAndBuildContext_ObservesDecision(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	builder := conversation.NewBuilder(&memoryMessages{}, conversation.DefaultConfig(), nil)
	svc := NewRetrievalService(builder, &stubRetriever{}, nil, RetrievalConfig{AutoSearch: true}, nil, metrics)

	_, err := svc.RetrieveAndBuildContext(context.Background(), "s1", "hi", false)
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Decisions))
}
