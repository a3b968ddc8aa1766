package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/api"
	"github.com/cloo-solutions/campusguide/internal/api/middleware"
	"github.com/cloo-solutions/campusguide/internal/service"
)

type RetrievalService interface {
	RetrieveAndBuildContext(ctx context.Context, sessionID, query string, force bool) (*service.RetrievalOutput, error)
}

type AnswerService interface {
	Answer(ctx context.Context, sessionID, query string, force bool) (*service.AnswerOutput, error)
}

// RetrievalHandler serves the retrieval core and the answer layer on top of it.
// answers may be nil, in which case /answer reports 503.
type RetrievalHandler struct {
	retrieval RetrievalService
	answers   AnswerService
}

func NewRetrievalHandler(retrieval RetrievalService, answers AnswerService) *RetrievalHandler {
	return &RetrievalHandler{retrieval: retrieval, answers: answers}
}

type QueryRequest struct {
	SessionID   string `json:"session_id"`
	Query       string `json:"query"`
	ForceSearch bool   `json:"force_search"`
}

func decodeQuery(r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("invalid request body")
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return req, errors.New("session_id is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.retrieval.RetrieveAndBuildContext(r.Context(), req.SessionID, req.Query, req.ForceSearch)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}

func (h *RetrievalHandler) Answer(w http.ResponseWriter, r *http.Request) {
	if h.answers == nil {
		api.Error(w, http.StatusServiceUnavailable, "answer generation is not configured")
		return
	}

	req, err := decodeQuery(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.answers.Answer(r.Context(), req.SessionID, req.Query, req.ForceSearch)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}
