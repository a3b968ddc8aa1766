package retrieval

import (
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// ScoringConfig holds the tunable relevance weights.
type ScoringConfig struct {
	ExactTitleBoost     float64
	TitleSubstringBoost float64
	TitleTermWeight     float64
	ContentTermWeight   float64
	ProgramKeywordBonus float64
	EntityBoost         float64
	SourcePriorWeight   float64
	GenericTitlePenalty float64
	MinRelevance        float64
	GenericTitles       []string
}

// DefaultScoringConfig returns the production relevance weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ExactTitleBoost:     0.9,
		TitleSubstringBoost: 0.6,
		TitleTermWeight:     0.35,
		ContentTermWeight:   0.15,
		ProgramKeywordBonus: 0.15,
		EntityBoost:         0.2,
		SourcePriorWeight:   0.2,
		GenericTitlePenalty: 0.5,
		MinRelevance:        0.15,
		GenericTitles: []string{
			"home", "homepage", "home page", "welcome", "rmit", "rmit university",
			"rmit australia", "study with us", "index",
		},
	}
}

var programKeywords = []string{"bachelor", "master", "course", "diploma", "degree", "certificate", "program"}

var degreeLevels = []string{"bachelor", "master", "diploma", "certificate", "doctor", "associate degree", "honours"}

// Scorer computes relevance deterministically from a result and the query input.
type Scorer struct {
	cfg     ScoringConfig
	generic map[string]struct{}
}

// NewScorer creates a Scorer for cfg.
func NewScorer(cfg ScoringConfig) *Scorer {
	generic := make(map[string]struct{}, len(cfg.GenericTitles))
	for _, t := range cfg.GenericTitles {
		generic[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Scorer{cfg: cfg, generic: generic}
}

// Config returns the weights in use.
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Score returns the relevance of r for in, clamped to [0, 1]. The score the
// producing strategy assigned is added as a weighted prior only once the
// query itself matches well enough to pass MinRelevance, so the prior orders
// relevant results but never lifts an unrelated one over the threshold.
func (s *Scorer) Score(r domain.SearchResult, in Input) float64 {
	rel := s.Relevance(r, in)
	if rel < s.cfg.MinRelevance && !IsProtected(r, in) {
		return rel
	}
	return s.withPrior(rel, r)
}

// Relevance scores r against the query and its terms alone.
func (s *Scorer) Relevance(r domain.SearchResult, in Input) float64 {
	title := strings.ToLower(strings.TrimSpace(r.Title))
	content := strings.ToLower(r.Content)
	query := strings.Join(strings.Fields(strings.ToLower(in.Query)), " ")

	score := 0.0
	if query != "" && title != "" {
		switch {
		case title == query:
			score += s.cfg.ExactTitleBoost
		case matchesTerm(title, query):
			score += s.cfg.TitleSubstringBoost
		}
	}

	if n := len(in.Terms); n > 0 {
		titleHits, contentHits := 0, 0
		for _, term := range in.Terms {
			if matchesTerm(title, term) {
				titleHits++
			}
			if matchesTerm(content, term) {
				contentHits++
			}
		}
		score += s.cfg.TitleTermWeight * float64(titleHits) / float64(n)
		score += s.cfg.ContentTermWeight * float64(contentHits) / float64(n)
	}

	if matchesAny(title, programKeywords) {
		score += s.cfg.ProgramKeywordBonus
	}

	if s.entityMatch(r, title, in) {
		score += s.cfg.EntityBoost
	}

	if s.isGeneric(title) {
		score *= s.cfg.GenericTitlePenalty
	}
	return domain.ClampScore(score)
}

func (s *Scorer) withPrior(rel float64, r domain.SearchResult) float64 {
	prior := s.cfg.SourcePriorWeight * r.RelevanceScore
	if s.isGeneric(strings.ToLower(strings.TrimSpace(r.Title))) {
		prior *= s.cfg.GenericTitlePenalty
	}
	return domain.ClampScore(rel + prior)
}

// ScoreAll returns rescored copies of results.
func (s *Scorer) ScoreAll(results []domain.SearchResult, in Input) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	for i, r := range results {
		out[i] = r.WithScore(s.Score(r, in))
	}
	return out
}

// ScoreFallback rescores fallback results, which are never filtered, always
// keeping the fallback's own ordering as the prior.
func (s *Scorer) ScoreFallback(results []domain.SearchResult, in Input) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	for i, r := range results {
		out[i] = r.WithScore(s.withPrior(s.Relevance(r, in), r))
	}
	return out
}

// entityMatch is true when the result carries an exact classified entity code
// or pairs a degree level with a specialization word from the query.
func (s *Scorer) entityMatch(r domain.SearchResult, title string, in Input) bool {
	if IsProtected(r, in) {
		return true
	}
	if !matchesAny(title, degreeLevels) {
		return false
	}
	for _, kw := range in.Classification.Entities.Keywords {
		if isLevelWord(kw) || len(kw) < 4 {
			continue
		}
		if matchesTerm(title, kw) {
			return true
		}
	}
	return false
}

func (s *Scorer) isGeneric(title string) bool {
	if title == "" {
		return true
	}
	if _, ok := s.generic[title]; ok {
		return true
	}
	// "Home | RMIT University" style titles
	for _, sep := range []string{" | ", " - "} {
		if head, _, found := strings.Cut(title, sep); found {
			if _, ok := s.generic[strings.TrimSpace(head)]; ok {
				return true
			}
		}
	}
	return false
}

// IsProtected reports whether r is an exact match for a classified entity:
// its course or program code, or the exact program name in the title.
// Protected results bypass the relevance threshold and rank first.
func IsProtected(r domain.SearchResult, in Input) bool {
	entities := in.Classification.Entities
	upperTitle := strings.ToUpper(r.Title)
	upperURL := strings.ToUpper(r.URL)
	for _, code := range entities.Codes() {
		if r.EntityCode == code || containsToken(upperTitle, code) || containsToken(upperURL, code) {
			return true
		}
	}
	if entities.ProgramName != "" && strings.Contains(strings.ToLower(r.Title), strings.ToLower(entities.ProgramName)) {
		return true
	}
	return false
}

// containsToken reports whether token occurs in s without alphanumeric neighbours.
func containsToken(s, token string) bool {
	if token == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(s[start:], token)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(token)
		if (i == 0 || !isAlnum(s[i-1])) && (j == len(s) || !isAlnum(s[j])) {
			return true
		}
		start = i + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isLevelWord(w string) bool {
	for _, l := range degreeLevels {
		if w == l {
			return true
		}
	}
	switch w {
	case "bachelors", "masters", "degree", "rmit", "program", "course":
		return true
	}
	return false
}

// matchesTerm reports whether the lowercase term occurs in the lowercase
// text as whole words, allowing a plural "s" or "es" on the last word.
func matchesTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(term)
		if i == 0 || !isAlnum(text[i-1]) {
			for _, suffix := range []string{"", "s", "es"} {
				k := j + len(suffix)
				if k <= len(text) && text[j:k] == suffix && (k == len(text) || !isAlnum(text[k])) {
					return true
				}
			}
		}
		start = i + 1
	}
}

func matchesAny(s string, terms []string) bool {
	for _, t := range terms {
		if matchesTerm(s, t) {
			return true
		}
	}
	return false
}
