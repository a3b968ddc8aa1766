package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/campusguide/internal/service"
)

// SearchLogRepository stores search logs for offline evaluation.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	results := entry.Results
	if results == nil {
		results = []service.SearchLogResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encoding search log results: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (session_id, query, category, rule, searched, forced, result_count, top_url,
		                          degraded, cached, duration_ms, results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		entry.SessionID,
		entry.Query,
		entry.Category,
		entry.Rule,
		entry.Searched,
		entry.Forced,
		entry.ResultCount,
		nullableString(entry.TopURL),
		entry.Degraded,
		entry.Cached,
		entry.DurationMs,
		resultsJSON,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
