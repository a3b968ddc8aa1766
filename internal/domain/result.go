package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceKind identifies which kind of strategy produced a result
type SourceKind string

const (
	SourceWeb            SourceKind = "web"
	SourceKnowledgeStore SourceKind = "knowledge_store"
	SourceOfficialStatic SourceKind = "official_static"
)

// MaxResultContentLen bounds SearchResult.Content in characters.
const MaxResultContentLen = 500

// SearchResult is a single retrieved candidate. Values are never mutated after
// construction; use the With* methods to derive adjusted copies.
type SearchResult struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	URL            string     `json:"url"`
	Source         SourceKind `json:"source"`
	RelevanceScore float64    `json:"relevance_score"`
	OriginQuery    string     `json:"origin_query"`
	Timestamp      time.Time  `json:"timestamp"`
	// EntityCode is the course or program code the producing strategy matched on.
	EntityCode string `json:"entity_code,omitempty"`
}

// NewSearchResult builds a result with content truncated and score clamped.
func NewSearchResult(id, title, content, url string, source SourceKind, score float64, originQuery string, ts time.Time) SearchResult {
	return SearchResult{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Content:        TruncateRunes(strings.TrimSpace(content), MaxResultContentLen),
		URL:            strings.TrimSpace(url),
		Source:         source,
		RelevanceScore: ClampScore(score),
		OriginQuery:    originQuery,
		Timestamp:      ts,
	}
}

// WithScore returns a copy carrying the given (clamped) relevance score.
func (r SearchResult) WithScore(score float64) SearchResult {
	r.RelevanceScore = ClampScore(score)
	return r
}

// WithEntityCode returns a copy tagged with the matched entity code.
func (r SearchResult) WithEntityCode(code string) SearchResult {
	r.EntityCode = strings.ToUpper(code)
	return r
}

// ValidateSearchResult checks the invariants of a SearchResult.
func ValidateSearchResult(r SearchResult) error {
	if r.URL == "" {
		return fmt.Errorf("search result URL is required")
	}
	if r.RelevanceScore < 0 || r.RelevanceScore > 1 {
		return fmt.Errorf("search result score out of range: %f", r.RelevanceScore)
	}
	if utf8.RuneCountInString(r.Content) > MaxResultContentLen {
		return fmt.Errorf("search result content exceeds %d characters", MaxResultContentLen)
	}
	switch r.Source {
	case SourceWeb, SourceKnowledgeStore, SourceOfficialStatic:
	default:
		return fmt.Errorf("search result source is invalid: %s", r.Source)
	}
	return nil
}

// SearchResponse is the aggregated outcome of one retrieval cycle.
type SearchResponse struct {
	Results         []SearchResult     `json:"results"`
	Query           string             `json:"query"`
	TotalCandidates int                `json:"total_candidates"`
	ElapsedMs       int64              `json:"elapsed_ms"`
	SourceCounts    map[SourceKind]int `json:"source_counts"`
	Cached          bool               `json:"cached"`
	// Degraded is set when only the static fallback produced results.
	Degraded bool `json:"degraded"`
}

// TopURL returns the URL of the best result, or "" when there are none.
func (r *SearchResponse) TopURL() string {
	if r == nil || len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].URL
}

// CountSources tallies results per source kind.
func CountSources(results []SearchResult) map[SourceKind]int {
	counts := make(map[SourceKind]int)
	for _, r := range results {
		counts[r.Source]++
	}
	return counts
}

// ClampScore bounds a score to [0, 1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// TruncateRunes cuts s to at most max runes.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
