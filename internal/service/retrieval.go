package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// ContextBuilder computes the conversation context for a session.
type ContextBuilder interface {
	Build(ctx context.Context, sessionID, currentQuery string) (*domain.ConversationContext, error)
}

// Retriever runs the retrieval strategies for a classified query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, cls domain.QueryClassification) *domain.SearchResponse
}

// MaxQueryLength bounds a single query in runes.
const MaxQueryLength = 2000

// RetrievalConfig holds the orchestration switches.
type RetrievalConfig struct {
	// AutoSearch lets the decision engine search without an explicit request.
	AutoSearch bool
}

// RetrievalOutput is the result of one retrieval cycle. Search is nil when
// the decision engine chose not to search.
type RetrievalOutput struct {
	Context        *domain.ConversationContext `json:"context"`
	Search         *domain.SearchResponse      `json:"search"`
	Classification domain.QueryClassification  `json:"classification"`
	Decision       intent.Decision             `json:"decision"`
}

// RetrievalService ties the context builder, classifier, decision engine and
// aggregator together.
type RetrievalService struct {
	builder   ContextBuilder
	retriever Retriever
	logs      SearchLogRepository
	cfg       RetrievalConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewRetrievalService creates a RetrievalService. logs, logger and metrics
// may be nil.
func NewRetrievalService(
	builder ContextBuilder,
	retriever Retriever,
	logs SearchLogRepository,
	cfg RetrievalConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{
		builder:   builder,
		retriever: retriever,
		logs:      logs,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// RetrieveAndBuildContext builds the session context, classifies the query
// against the session focus and searches when the decision engine says so.
// Only invalid input produces an error.
func (s *RetrievalService) RetrieveAndBuildContext(ctx context.Context, sessionID, query string, force bool) (*RetrievalOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	query = strings.TrimSpace(query)
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}
	if query == "" {
		return nil, domain.ErrQueryRequired
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, domain.ErrQueryTooLong
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.RetrieveAndBuildContext", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "retrieve",
	})
	defer span.End()

	start := time.Now()

	convo, err := s.builder.Build(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	cls := intent.Classify(query, convo.Focus)
	decision := intent.Decide(query, force, s.cfg.AutoSearch, convo.PriorTexts(query))
	s.metrics.ObserveDecision(string(decision.Rule), decision.Search)

	span.SetData("category", string(cls.PrimaryCategory))
	span.SetData("decision", string(decision.Rule))

	out := &RetrievalOutput{
		Context:        convo,
		Classification: cls,
		Decision:       decision,
	}
	if decision.Search {
		out.Search = s.retriever.Retrieve(ctx, query, cls)
	}

	s.logger.Info("retrieval cycle",
		zap.String("session_id", sessionID),
		zap.String("category", string(cls.PrimaryCategory)),
		zap.String("rule", string(decision.Rule)),
		zap.Bool("searched", decision.Search),
		zap.Int("results", resultCount(out.Search)),
		zap.Duration("elapsed", time.Since(start)))

	s.recordSearch(ctx, sessionID, query, force, out, time.Since(start))
	return out, nil
}

// recordSearch is best effort; failures never reach the caller.
func (s *RetrievalService) recordSearch(ctx context.Context, sessionID, query string, force bool, out *RetrievalOutput, elapsed time.Duration) {
	if s.logs == nil {
		return
	}
	entry := SearchLogEntry{
		SessionID:   sessionID,
		Query:       query,
		Category:    string(out.Classification.PrimaryCategory),
		Rule:        string(out.Decision.Rule),
		Searched:    out.Decision.Search,
		Forced:      force,
		ResultCount: resultCount(out.Search),
		DurationMs:  int(elapsed.Milliseconds()),
		Results:     searchLogResults(out.Search),
	}
	if out.Search != nil {
		entry.TopURL = out.Search.TopURL()
		entry.Degraded = out.Search.Degraded
		entry.Cached = out.Search.Cached
	}
	if _, err := s.logs.CreateSearchLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record search log", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func resultCount(resp *domain.SearchResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Results)
}
