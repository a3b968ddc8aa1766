// Package retrieval fans a query out to independent search strategies,
// then merges, scores and ranks whatever comes back within the deadline.
package retrieval

import (
	"context"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// Strategy is one independent source of search results. Implementations may
// return errors; the aggregator converts every failure into an empty result
// list so that one source can never fail the whole retrieval.
type Strategy interface {
	Name() string
	Kind() domain.SourceKind
	Search(ctx context.Context, in Input) ([]domain.SearchResult, error)
}

// Input is what every strategy receives for one retrieval cycle.
type Input struct {
	// Query is the user's text as typed.
	Query string
	// SearchQuery is Query with any entity resolved from prior context appended.
	SearchQuery string
	// Terms are the enhanced search terms.
	Terms          []string
	Classification domain.QueryClassification
	// Institution is the lowercased institution name EnhanceTerms appends.
	Institution string
}

// NewInput prepares the strategy input for a classified query.
func NewInput(query string, cls domain.QueryClassification, institution string) Input {
	return Input{
		Query:          strings.TrimSpace(query),
		SearchQuery:    searchQuery(query, cls),
		Terms:          EnhanceTerms(query, cls, institution),
		Classification: cls,
		Institution:    strings.ToLower(strings.TrimSpace(institution)),
	}
}

// searchQuery appends entities that came from prior context so that a bare
// follow-up like "who teaches it?" still searches for the right course.
func searchQuery(query string, cls domain.QueryClassification) string {
	q := strings.TrimSpace(query)
	if !cls.UsedPriorContext {
		return q
	}
	upper := strings.ToUpper(q)
	for _, extra := range []string{cls.Entities.CourseCode, cls.Entities.ProgramCode, cls.Entities.ProgramName} {
		if extra == "" || strings.Contains(upper, strings.ToUpper(extra)) {
			continue
		}
		q = strings.TrimSpace(q + " " + extra)
		upper = strings.ToUpper(q)
	}
	return q
}

// TextTerms returns Terms without the institution name, which matches
// nearly every page of the institution's own site.
func (in Input) TextTerms() []string {
	out := make([]string, 0, len(in.Terms))
	for _, t := range in.Terms {
		if t != in.Institution {
			out = append(out, t)
		}
	}
	return out
}

// Codes returns the entity codes the classification resolved.
func (in Input) Codes() []string {
	return in.Classification.Entities.Codes()
}
