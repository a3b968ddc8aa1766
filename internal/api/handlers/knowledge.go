package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/campusguide/internal/api"
	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/service"
	"github.com/go-chi/chi/v5"
)

type KnowledgeService interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	ListKnowledge(ctx context.Context, input service.ListKnowledgeInput) (*service.ListKnowledgeOutput, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type KnowledgeResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Category       string         `json:"category"`
	Tags           []string       `json:"tags"`
	Priority       int            `json:"priority"`
	SourceURL      string         `json:"source_url"`
	IsActive       bool           `json:"is_active"`
	EntityCodes    []string       `json:"entity_codes,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

func knowledgeToResponse(k *domain.KnowledgeItem) *KnowledgeResponse {
	tags := k.Tags
	if tags == nil {
		tags = []string{}
	}
	return &KnowledgeResponse{
		ID:             k.ID,
		Title:          k.Title,
		Content:        k.Content,
		Category:       string(k.Category),
		Tags:           tags,
		Priority:       k.Priority,
		SourceURL:      k.SourceURL,
		IsActive:       k.IsActive,
		EntityCodes:    k.EntityCodes,
		StructuredData: k.StructuredData,
		CreatedAt:      k.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      k.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeToResponse(item))
}

type KnowledgeListResponse struct {
	Items   []*KnowledgeResponse `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	output, err := h.svc.ListKnowledge(r.Context(), service.ListKnowledgeInput{
		Category: domain.KnowledgeCategory(query.Get("category")),
		Cursor:   query.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*KnowledgeResponse, len(output.Items))
	for i, k := range output.Items {
		responses[i] = knowledgeToResponse(k)
	}

	api.Success(w, http.StatusOK, KnowledgeListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
