package conversation

import (
	"regexp"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
)

// knownPolicies maps lowercase phrases to the policy name recorded.
var knownPolicies = []struct{ phrase, name string }{
	{"academic integrity", "Academic Integrity"},
	{"plagiarism", "Academic Integrity"},
	{"special consideration", "Special Consideration"},
	{"credit transfer", "Credit Transfer"},
	{"recognition of prior learning", "Recognition of Prior Learning"},
	{"leave of absence", "Leave of Absence"},
	{"assessment policy", "Assessment Policy"},
	{"enrolment policy", "Enrolment Policy"},
	{"enrollment policy", "Enrolment Policy"},
	{"fee refund", "Fee Refund"},
	{"refund policy", "Fee Refund"},
	{"student conduct", "Student Conduct"},
	{"misconduct", "Student Conduct"},
	{"complaints", "Complaints"},
	{"appeals", "Appeals"},
	{"privacy", "Privacy"},
	{"withdrawal", "Withdrawal"},
	{"extension", "Extensions"},
}

var knownLocations = []struct{ phrase, name string }{
	{"melbourne city", "Melbourne City"},
	{"city campus", "Melbourne City"},
	{"bundoora", "Bundoora"},
	{"brunswick", "Brunswick"},
	{"point cook", "Point Cook"},
	{"hamilton", "Hamilton"},
	{"saigon south", "Saigon South"},
	{"ho chi minh", "Saigon South"},
	{"hanoi", "Hanoi"},
	{"da nang", "Da Nang"},
	{"vietnam", "Vietnam"},
	{"barcelona", "Barcelona"},
	{"online", "Online"},
	{"melbourne", "Melbourne"},
}

var datePattern = regexp.MustCompile(`(?i)\b(?:(?:january|february|march|april|june|july|august|september|october|november|december)(?:\s+\d{1,2}\b)?|may\s+\d{1,2}\b|(?:semester|sem|week|term|trimester)\s+\d{1,2}\b|(?:19|20)\d{2}\b)`)

// ExtractEntities finds the entities mentioned across texts, each kind
// deduplicated in order of first mention and capped at limit.
func ExtractEntities(texts []string, limit int) domain.ConversationEntities {
	courses := newOrderedSet(limit)
	programs := newOrderedSet(limit)
	policies := newOrderedSet(limit)
	locations := newOrderedSet(limit)
	dates := newOrderedSet(limit)

	for _, text := range texts {
		for _, c := range intent.ExtractCourseCodes(text) {
			courses.add(c)
		}
		for _, p := range intent.ExtractProgramCodes(text) {
			programs.add(p)
		}
		for _, p := range intent.ExtractProgramNames(text) {
			programs.add(p)
		}

		padded := " " + strings.Join(words(text), " ") + " "
		for _, p := range knownPolicies {
			if strings.Contains(padded, " "+p.phrase+" ") {
				policies.add(p.name)
			}
		}
		for _, l := range knownLocations {
			if strings.Contains(padded, " "+l.phrase+" ") {
				locations.add(l.name)
			}
		}

		for _, d := range datePattern.FindAllString(text, -1) {
			dates.add(strings.ToLower(strings.Join(strings.Fields(d), " ")))
		}
	}

	return domain.ConversationEntities{
		Courses:   courses.items,
		Programs:  programs.items,
		Policies:  policies.items,
		Locations: locations.items,
		Dates:     dates.items,
	}
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
	limit int
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{items: []string{}, seen: make(map[string]struct{}), limit: limit}
}

func (s *orderedSet) add(v string) {
	if v == "" || len(s.items) >= s.limit {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
