package retrieval

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

//go:embed links.yaml
var defaultLinksYAML []byte

// StaticLink is one curated official link.
type StaticLink struct {
	Title       string   `yaml:"title"`
	URL         string   `yaml:"url"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// LinkCatalogue is the curated link set.
type LinkCatalogue struct {
	Defaults []StaticLink `yaml:"defaults"`
	Links    []StaticLink `yaml:"links"`
}

// ParseLinkCatalogue decodes a YAML link catalogue.
func ParseLinkCatalogue(data []byte) (LinkCatalogue, error) {
	var c LinkCatalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return LinkCatalogue{}, fmt.Errorf("parsing link catalogue: %w", err)
	}
	if len(c.Defaults) == 0 {
		return LinkCatalogue{}, fmt.Errorf("link catalogue has no default links")
	}
	for _, l := range append(append([]StaticLink(nil), c.Defaults...), c.Links...) {
		if strings.TrimSpace(l.URL) == "" {
			return LinkCatalogue{}, fmt.Errorf("link %q has no url", l.Title)
		}
	}
	return c, nil
}

// DefaultLinkCatalogue returns the embedded catalogue.
func DefaultLinkCatalogue() LinkCatalogue {
	c, err := ParseLinkCatalogue(defaultLinksYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// maxStaticMatches caps keyword-selected links.
const maxStaticMatches = 5

// StaticLinks is the last-resort strategy. It never fails and always
// returns at least the default links.
type StaticLinks struct {
	catalogue LinkCatalogue
	now       func() time.Time
}

// NewStaticLinks creates the fallback strategy over catalogue.
func NewStaticLinks(catalogue LinkCatalogue) *StaticLinks {
	return &StaticLinks{catalogue: catalogue, now: time.Now}
}

func (s *StaticLinks) Name() string            { return "static" }
func (s *StaticLinks) Kind() domain.SourceKind { return domain.SourceOfficialStatic }

func (s *StaticLinks) Search(_ context.Context, in Input) ([]domain.SearchResult, error) {
	words := make(map[string]struct{})
	for _, t := range tokenize(in.Query) {
		words[t] = struct{}{}
	}
	for _, t := range in.Terms {
		words[t] = struct{}{}
	}

	type match struct {
		link StaticLink
		hits int
	}
	var matches []match
	for _, l := range s.catalogue.Links {
		hits := 0
		for _, kw := range l.Keywords {
			if _, ok := words[strings.ToLower(kw)]; ok {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, match{link: l, hits: hits})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })
	if len(matches) > maxStaticMatches {
		matches = matches[:maxStaticMatches]
	}

	now := s.now()
	out := make([]domain.SearchResult, 0, len(matches)+len(s.catalogue.Defaults))
	for i, m := range matches {
		score := 0.5 + 0.1*float64(min(m.hits, 3))
		out = append(out, domain.NewSearchResult("static-"+strconv.Itoa(i), m.link.Title, m.link.Description,
			m.link.URL, domain.SourceOfficialStatic, score, in.Query, now))
	}
	for i, l := range s.catalogue.Defaults {
		out = append(out, domain.NewSearchResult("static-default-"+strconv.Itoa(i), l.Title, l.Description,
			l.URL, domain.SourceOfficialStatic, 0.3, in.Query, now))
	}
	return out, nil
}
