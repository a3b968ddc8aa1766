package service

import (
	"context"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// SearchLogResult captures a single result entry for logging.
type SearchLogResult struct {
	URL    string  `json:"url"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// SearchLogEntry captures one retrieval cycle and its results.
type SearchLogEntry struct {
	SessionID   string
	Query       string
	Category    string
	Rule        string
	Searched    bool
	Forced      bool
	ResultCount int
	TopURL      string
	Degraded    bool
	Cached      bool
	DurationMs  int
	Results     []SearchLogResult
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}

func searchLogResults(resp *domain.SearchResponse) []SearchLogResult {
	if resp == nil {
		return nil
	}
	out := make([]SearchLogResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, SearchLogResult{URL: r.URL, Source: string(r.Source), Score: r.RelevanceScore})
	}
	return out
}
