package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/campusguide/internal/api/middleware"
	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
	"github.com/cloo-solutions/campusguide/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) RetrieveAndBuildContext(ctx context.Context, sessionID, query string, force bool) (*service.RetrievalOutput, error) {
	args := m.Called(ctx, sessionID, query, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrievalOutput), args.Error(1)
}

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, sessionID, query string, force bool) (*service.AnswerOutput, error) {
	args := m.Called(ctx, sessionID, query, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerOutput), args.Error(1)
}

func newRetrievalOutput() *service.RetrievalOutput {
	return &service.RetrievalOutput{
		Context: &domain.ConversationContext{
			SessionID: "s-1",
			Focus:     domain.Focus{CourseCode: "COSC1111"},
		},
		Search: &domain.SearchResponse{
			Query: "COSC1111 prerequisites",
			Results: []domain.SearchResult{
				{ID: "r-1", Title: "COSC1111", URL: "https://www.rmit.edu.au/courses/cosc1111", Source: domain.SourceKnowledgeStore, RelevanceScore: 0.9},
			},
		},
		Classification: domain.QueryClassification{PrimaryCategory: domain.CategoryCourse},
		Decision:       intent.Decision{Search: true, Rule: intent.RuleCourseSyntax},
	}
}

func TestRetrievalHandler_Retrieve_Success(t *testing.T) {
	retrieval := new(MockRetrievalService)
	handler := NewRetrievalHandler(retrieval, nil)

	retrieval.On("RetrieveAndBuildContext", mock.Anything, "s-1", "COSC1111 prerequisites", true).
		Return(newRetrievalOutput(), nil)

	body := `{"session_id":"s-1","query":"COSC1111 prerequisites","force_search":true}`
	w := httptest.NewRecorder()
	handler.Retrieve(w, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Context  domain.ConversationContext `json:"context"`
			Search   *domain.SearchResponse     `json:"search"`
			Decision intent.Decision            `json:"decision"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "COSC1111", resp.Data.Context.Focus.CourseCode)
	require.NotNil(t, resp.Data.Search)
	assert.Len(t, resp.Data.Search.Results, 1)
	assert.Equal(t, intent.RuleCourseSyntax, resp.Data.Decision.Rule)
	retrieval.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_SessionHeader(t *testing.T) {
	retrieval := new(MockRetrievalService)
	handler := NewRetrievalHandler(retrieval, nil)

	retrieval.On("RetrieveAndBuildContext", mock.Anything, "s-header", "hello", false).
		Return(&service.RetrievalOutput{Context: &domain.ConversationContext{SessionID: "s-header"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"query":"hello"}`))
	req.Header.Set(middleware.SessionIDHeader, "s-header")
	w := httptest.NewRecorder()
	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"search":null`)
	retrieval.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{invalid`, "invalid request body"},
		{"missing session", `{"query":"fees"}`, "session_id is required"},
		{"blank query", `{"session_id":"s-1","query":"   "}`, "query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrieval := new(MockRetrievalService)
			handler := NewRetrievalHandler(retrieval, nil)

			w := httptest.NewRecorder()
			handler.Retrieve(w, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			retrieval.AssertNotCalled(t, "RetrieveAndBuildContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRetrievalHandler_Retrieve_DomainError(t *testing.T) {
	retrieval := new(MockRetrievalService)
	handler := NewRetrievalHandler(retrieval, nil)

	retrieval.On("RetrieveAndBuildContext", mock.Anything, "s-1", "q", false).Return(nil, domain.ErrQueryTooLong)

	w := httptest.NewRecorder()
	handler.Retrieve(w, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"session_id":"s-1","query":"q"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrievalHandler_Answer_Success(t *testing.T) {
	answers := new(MockAnswerService)
	handler := NewRetrievalHandler(new(MockRetrievalService), answers)

	answers.On("Answer", mock.Anything, "s-1", "What are the fees?", false).Return(&service.AnswerOutput{
		Answer:    "Fees vary by program.",
		Retrieval: newRetrievalOutput(),
	}, nil)

	w := httptest.NewRecorder()
	handler.Answer(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(`{"session_id":"s-1","query":"What are the fees?"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fees vary by program.")
	answers.AssertExpectations(t)
}

func TestRetrievalHandler_Answer_NotConfigured(t *testing.T) {
	handler := NewRetrievalHandler(new(MockRetrievalService), nil)

	w := httptest.NewRecorder()
	handler.Answer(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(`{"session_id":"s-1","query":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRetrievalHandler_Answer_GeneratorUnavailable(t *testing.T) {
	answers := new(MockAnswerService)
	handler := NewRetrievalHandler(new(MockRetrievalService), answers)

	answers.On("Answer", mock.Anything, "s-1", "hi", false).Return(nil, domain.ErrGeneratorUnavailable)

	w := httptest.NewRecorder()
	handler.Answer(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(`{"session_id":"s-1","query":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRetrievalHandler_Answer_GenerationFailure(t *testing.T) {
	answers := new(MockAnswerService)
	handler := NewRetrievalHandler(new(MockRetrievalService), answers)

	answers.On("Answer", mock.Anything, "s-1", "hi", false).Return(nil, errors.New("openai: 500"))

	w := httptest.NewRecorder()
	handler.Answer(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(`{"session_id":"s-1","query":"hi"}`)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "openai")
}
