package retrieval

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
)

// MaxTerms caps the enhanced term list.
const MaxTerms = 18

// shortAbbrevLen is the length at or below which an abbreviation is only
// expanded when the query also carries a program-indicating word.
const shortAbbrevLen = 3

var abbreviations = map[string][]string{
	"bach":      {"bachelor", "undergraduate"},
	"bachelors": {"bachelor", "undergraduate"},
	"bsc":       {"bachelor", "science"},
	"ba":        {"bachelor", "arts"},
	"beng":      {"bachelor", "engineering"},
	"msc":       {"master", "science"},
	"mba":       {"master", "business", "administration"},
	"masters":   {"master", "postgraduate"},
	"postgrad":  {"postgraduate", "master"},
	"undergrad": {"undergraduate", "bachelor"},
	"phd":       {"doctor", "philosophy", "research"},
	"cs":        {"computer", "science"},
	"comp":      {"computer"},
	"compsci":   {"computer", "science"},
	"sci":       {"science"},
	"it":        {"information", "technology"},
	"ict":       {"information", "communication", "technology"},
	"ai":        {"artificial", "intelligence"},
	"ml":        {"machine", "learning"},
	"ds":        {"data", "science"},
	"se":        {"software", "engineering"},
	"eng":       {"engineering"},
	"biz":       {"business"},
	"psych":     {"psychology"},
	"uni":       {"university"},
}

var programIndicators = map[string]struct{}{
	"bachelor": {}, "bachelors": {}, "bach": {}, "master": {}, "masters": {}, "degree": {},
	"program": {}, "programs": {}, "programme": {}, "course": {}, "courses": {}, "diploma": {},
	"certificate": {}, "study": {}, "major": {}, "bsc": {}, "msc": {}, "undergrad": {},
	"postgrad": {}, "undergraduate": {}, "postgraduate": {}, "honours": {}, "phd": {},
}

var upperCodeToken = regexp.MustCompile(`\b[A-Z]{2,4}\d{3,5}\b`)
var yearTerm = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// EnhanceTerms turns a raw query into an ordered, deduplicated list of search
// terms: stopwords dropped, abbreviations expanded, the institution name and
// any classified entities appended, capped at MaxTerms.
func EnhanceTerms(query string, cls domain.QueryClassification, institution string) []string {
	tokens := tokenize(query)

	hasProgramWord := false
	for _, t := range tokens {
		if _, ok := programIndicators[t]; ok {
			hasProgramWord = true
			break
		}
	}

	var terms []string
	seen := make(map[string]struct{})
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	for _, t := range tokens {
		if expansion, ok := abbreviations[t]; ok && (len(t) > shortAbbrevLen || hasProgramWord) {
			for _, e := range expansion {
				add(e)
			}
			continue
		}
		if intent.IsStopword(t) || len(t) < 2 {
			continue
		}
		add(t)
	}

	for _, code := range upperCodeToken.FindAllString(strings.ToUpper(query), -1) {
		add(strings.ToLower(code))
	}
	for _, y := range yearTerm.FindAllString(query, -1) {
		add(y)
	}
	for _, code := range cls.Entities.Codes() {
		add(strings.ToLower(code))
	}
	if cls.Entities.ProgramName != "" {
		for _, w := range tokenize(cls.Entities.ProgramName) {
			if !intent.IsStopword(w) {
				add(w)
			}
		}
	}
	limit := MaxTerms
	inst := strings.ToLower(strings.TrimSpace(institution))
	if _, present := seen[inst]; inst != "" && !present {
		limit--
	}
	if len(terms) > limit {
		terms = terms[:limit]
	}
	if inst != "" {
		if _, present := seen[inst]; !present {
			terms = append(terms, inst)
		}
	}
	return terms
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
