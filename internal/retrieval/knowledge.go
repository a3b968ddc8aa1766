package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// KnowledgeStore is the read side of the curated knowledge base.
type KnowledgeStore interface {
	// FindByCode returns items whose entity codes match code exactly,
	// followed by partial matches.
	FindByCode(ctx context.Context, code string, limit int) ([]domain.KnowledgeItem, error)
	// SearchText matches terms against title, content and tags, highest
	// priority first.
	SearchText(ctx context.Context, terms []string, limit int) ([]domain.KnowledgeItem, error)
}

// SemanticStore is implemented by stores that hold embeddings.
type SemanticStore interface {
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]domain.KnowledgeItem, error)
}

// Embedder turns a query into an embedding vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// MaxKnowledgeResults caps each knowledge store lookup.
const MaxKnowledgeResults = 20

// KnowledgeSearch queries the curated knowledge base: entity codes first,
// then keyword search, then vector similarity when both came back empty.
type KnowledgeSearch struct {
	store    KnowledgeStore
	embedder Embedder
	logger   *zap.Logger
	now      func() time.Time
}

// NewKnowledgeSearch creates the knowledge store strategy. embedder may be nil.
func NewKnowledgeSearch(store KnowledgeStore, embedder Embedder, logger *zap.Logger) *KnowledgeSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeSearch{store: store, embedder: embedder, logger: logger, now: time.Now}
}

func (k *KnowledgeSearch) Name() string            { return "knowledge" }
func (k *KnowledgeSearch) Kind() domain.SourceKind { return domain.SourceKnowledgeStore }

func (k *KnowledgeSearch) Search(ctx context.Context, in Input) ([]domain.SearchResult, error) {
	if k.store == nil {
		return nil, nil
	}

	var results []domain.SearchResult
	seen := make(map[string]struct{})
	add := func(item domain.KnowledgeItem, score float64, code string) {
		if _, ok := seen[item.ID]; ok || item.SourceURL == "" {
			return
		}
		seen[item.ID] = struct{}{}
		r := domain.NewSearchResult("kb-"+item.ID, item.Title, item.Content, item.SourceURL,
			domain.SourceKnowledgeStore, score, in.Query, k.now())
		if code != "" {
			r = r.WithEntityCode(code)
		}
		results = append(results, r)
	}

	for _, code := range in.Codes() {
		items, err := k.store.FindByCode(ctx, code, MaxKnowledgeResults)
		if err != nil {
			return nil, fmt.Errorf("knowledge lookup by code %s: %w", code, err)
		}
		for _, item := range items {
			if hasCode(item, code) {
				add(item, 1.0, code)
			} else {
				add(item, 0.8, "")
			}
		}
	}

	if terms := in.TextTerms(); len(terms) > 0 {
		items, err := k.store.SearchText(ctx, terms, MaxKnowledgeResults)
		if err != nil {
			if len(results) > 0 {
				k.logger.Warn("knowledge text search failed", zap.Error(err))
				return results, nil
			}
			return nil, fmt.Errorf("knowledge text search: %w", err)
		}
		for _, item := range items {
			add(item, priorityScore(item.Priority), "")
		}
	}

	if len(results) == 0 {
		for i, item := range k.semantic(ctx, in) {
			add(item, max(0.3, 0.7-0.03*float64(i)), "")
		}
	}
	return results, nil
}

// semantic is best effort: failures are logged and yield nothing.
func (k *KnowledgeSearch) semantic(ctx context.Context, in Input) []domain.KnowledgeItem {
	sem, ok := k.store.(SemanticStore)
	if !ok || k.embedder == nil || in.SearchQuery == "" {
		return nil
	}
	vec, err := k.embedder.GenerateEmbedding(ctx, in.SearchQuery)
	if err != nil {
		k.logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}
	items, err := sem.SearchSemantic(ctx, vec, MaxKnowledgeResults)
	if err != nil {
		k.logger.Warn("knowledge semantic search failed", zap.Error(err))
		return nil
	}
	return items
}

func hasCode(item domain.KnowledgeItem, code string) bool {
	for _, c := range item.EntityCodes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// priorityScore maps knowledge priority 1..10 onto [0.4, 0.85].
func priorityScore(priority int) float64 {
	p := min(max(priority, domain.MinKnowledgePriority), domain.MaxKnowledgePriority)
	return 0.4 + 0.05*float64(p-1)
}
