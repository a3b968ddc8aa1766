package retrieval

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// NormalizeURL reduces a URL to its dedup identity: lowercase host without
// "www.", path without trailing slash, query kept, scheme and fragment dropped.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if !strings.Contains(raw, "://") {
			if u2, err2 := url.Parse("https://" + raw); err2 == nil && u2.Host != "" {
				u = u2
				err = nil
			}
		}
		if err != nil || u == nil || u.Host == "" {
			return strings.TrimSuffix(strings.ToLower(raw), "/")
		}
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(strings.ToLower(u.EscapedPath()), "/")
	key := host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

// Dedup keeps one result per normalized URL, the one with the highest
// score. First-seen order is preserved. Dedup(Dedup(x)) == Dedup(x).
func Dedup(results []domain.SearchResult) []domain.SearchResult {
	index := make(map[string]int, len(results))
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if r.RelevanceScore > out[i].RelevanceScore {
				out[i] = r
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// Filter drops results below minScore unless they are protected entity matches.
func Filter(results []domain.SearchResult, in Input, minScore float64) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.RelevanceScore >= minScore || IsProtected(r, in) {
			out = append(out, r)
		}
	}
	return out
}

var sourcePreference = map[domain.SourceKind]int{
	domain.SourceKnowledgeStore: 0,
	domain.SourceWeb:            1,
	domain.SourceOfficialStatic: 2,
}

// Rank orders results by score (ties broken by source then URL), moves
// protected entity matches to the front and truncates to limit.
func Rank(results []domain.SearchResult, in Input, limit int) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		pi, pj := sourcePreference[out[i].Source], sourcePreference[out[j].Source]
		if pi != pj {
			return pi < pj
		}
		return out[i].URL < out[j].URL
	})

	protected := make([]domain.SearchResult, 0, len(out))
	rest := make([]domain.SearchResult, 0, len(out))
	for _, r := range out {
		if IsProtected(r, in) {
			protected = append(protected, r)
		} else {
			rest = append(rest, r)
		}
	}
	out = append(protected, rest...)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
