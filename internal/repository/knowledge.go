package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/pagination"
	"github.com/cloo-solutions/campusguide/internal/service"
)

const knowledgeColumns = `id, title, content, category, tags, priority, source_url, is_active,
	entity_codes, content_hash, structured_data, created_at, updated_at`

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

// Upsert inserts k or replaces the row with the same source URL. k.ID and
// k.CreatedAt are set from the stored row. A content change clears the
// stored embedding so it is regenerated.
func (r *KnowledgeRepository) Upsert(ctx context.Context, k *domain.KnowledgeItem) error {
	structured := k.StructuredData
	if structured == nil {
		structured = map[string]any{}
	}
	tags := k.Tags
	if tags == nil {
		tags = []string{}
	}
	codes := k.EntityCodes
	if codes == nil {
		codes = []string{}
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO knowledge_items (id, title, content, category, tags, priority, source_url, is_active,
		                              entity_codes, content_hash, structured_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (source_url) DO UPDATE SET
		     title = EXCLUDED.title,
		     content = EXCLUDED.content,
		     category = EXCLUDED.category,
		     tags = EXCLUDED.tags,
		     priority = EXCLUDED.priority,
		     is_active = EXCLUDED.is_active,
		     entity_codes = EXCLUDED.entity_codes,
		     structured_data = EXCLUDED.structured_data,
		     embedding = CASE WHEN knowledge_items.content_hash = EXCLUDED.content_hash
		                      THEN knowledge_items.embedding ELSE NULL END,
		     content_hash = EXCLUDED.content_hash,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		k.ID, k.Title, k.Content, k.Category, tags, k.Priority, k.SourceURL, k.IsActive,
		codes, k.ContentHash, structured, k.CreatedAt, k.UpdatedAt,
	).Scan(&k.ID, &k.CreatedAt)
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrKnowledgeNotFound
	}
	return r.getOne(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_items WHERE id = $1`, id)
}

func (r *KnowledgeRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.KnowledgeItem, error) {
	return r.getOne(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_items WHERE source_url = $1`, sourceURL)
}

func (r *KnowledgeRepository) getOne(ctx context.Context, sql string, arg any) (*domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrKnowledgeNotFound
	}
	return items[0], nil
}

// FindByCode returns active items carrying code as an entity code first,
// then items that mention it in their title or URL.
func (r *KnowledgeRepository) FindByCode(ctx context.Context, code string, limit int) ([]domain.KnowledgeItem, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+`
		 FROM knowledge_items
		 WHERE is_active AND ($1 = ANY(entity_codes) OR title ILIKE $2 OR source_url ILIKE $2)
		 ORDER BY ($1 = ANY(entity_codes)) DESC, priority DESC, updated_at DESC
		 LIMIT $3`,
		code, containsPattern(code), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeValues(rows)
}

// SearchText matches terms against title, content and tags. Higher priority
// wins, then more title hits.
func (r *KnowledgeRepository) SearchText(ctx context.Context, terms []string, limit int) ([]domain.KnowledgeItem, error) {
	patterns := make([]string, 0, len(terms))
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		patterns = append(patterns, containsPattern(t))
		lowered = append(lowered, t)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+`
		 FROM knowledge_items
		 WHERE is_active AND (title ILIKE ANY($1) OR content ILIKE ANY($1) OR tags && $2)
		 ORDER BY priority DESC,
		          (SELECT count(*) FROM unnest($1::text[]) AS p(pat) WHERE title ILIKE p.pat) DESC,
		          updated_at DESC
		 LIMIT $3`,
		patterns, lowered, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeValues(rows)
}

// SearchSemantic returns the active items nearest to embedding by cosine distance.
func (r *KnowledgeRepository) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+`
		 FROM knowledge_items
		 WHERE is_active AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeValues(rows)
}

func (r *KnowledgeRepository) ListByCategoryWithCursor(ctx context.Context, category domain.KnowledgeCategory, cursor *pagination.Cursor, limit int) (*service.KnowledgePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_items
			 WHERE ($1 = '' OR category = $1) AND (priority, updated_at, id) < ($2, $3, $4::uuid)
			 ORDER BY priority DESC, updated_at DESC, id DESC
			 LIMIT $5`,
			string(category), cursor.Priority, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_items
			 WHERE ($1 = '' OR category = $1)
			 ORDER BY priority DESC, updated_at DESC, id DESC
			 LIMIT $2`,
			string(category), limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore {
		nextCursor = pagination.CreateNextCursor(items, limit, func(k *domain.KnowledgeItem) (string, int, time.Time) {
			return k.ID, k.Priority, k.UpdatedAt
		})
	}

	return &service.KnowledgePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeNotFound
	}
	return nil
}

func scanKnowledgeRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var results []*domain.KnowledgeItem
	for rows.Next() {
		var k domain.KnowledgeItem
		var category string
		if err := rows.Scan(&k.ID, &k.Title, &k.Content, &category, &k.Tags, &k.Priority, &k.SourceURL, &k.IsActive,
			&k.EntityCodes, &k.ContentHash, &k.StructuredData, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		k.Category = domain.KnowledgeCategory(category)
		results = append(results, &k)
	}
	return results, rows.Err()
}

func scanKnowledgeValues(rows pgx.Rows) ([]domain.KnowledgeItem, error) {
	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KnowledgeItem, len(items))
	for i, k := range items {
		out[i] = *k
	}
	return out, nil
}
