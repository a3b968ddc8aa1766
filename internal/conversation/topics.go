package conversation

import (
	"sort"
	"strings"
	"unicode"
)

// shortConversation is the window size at or below which one keyword hit
// is enough to record a topic.
const shortConversation = 3

var topicKeywords = map[string][]string{
	"courses": {
		"course", "courses", "subject", "subjects", "unit", "units", "program", "programs", "degree",
		"bachelor", "master", "masters", "diploma", "elective", "electives", "prerequisite", "prerequisites",
	},
	"enrollment": {
		"enrol", "enroll", "enrolment", "enrollment", "enrolling", "apply", "application", "admission",
		"admissions", "register", "registration", "intake",
	},
	"fees": {
		"fee", "fees", "cost", "costs", "tuition", "payment", "pay", "scholarship", "scholarships", "price",
	},
	"dates": {
		"date", "dates", "deadline", "deadlines", "semester", "census", "calendar", "timetable", "week", "when",
	},
	"links": {"link", "links", "url", "website", "webpage", "page"},
	"academic": {
		"exam", "exams", "assessment", "assessments", "grade", "grades", "gpa", "results", "plagiarism",
		"integrity", "policy", "policies", "special consideration",
	},
	"support": {
		"support", "help", "counselling", "counseling", "wellbeing", "disability", "advice", "service", "services",
	},
	"campus": {
		"campus", "campuses", "city", "bundoora", "brunswick", "location", "building", "library", "parking",
	},
}

// ExtractTopics returns the sorted topics the texts discuss. A topic needs
// two keyword hits, or one when there are at most three texts.
func ExtractTopics(texts []string) []string {
	if len(texts) == 0 {
		return []string{}
	}

	threshold := 2
	if len(texts) <= shortConversation {
		threshold = 1
	}

	counts := make(map[string]int)
	var padded strings.Builder
	padded.WriteByte(' ')
	for _, text := range texts {
		for _, w := range words(text) {
			counts[w]++
			padded.WriteString(w)
			padded.WriteByte(' ')
		}
	}
	joined := padded.String()

	topics := make([]string, 0, len(topicKeywords))
	for topic, keywords := range topicKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				hits += strings.Count(joined, " "+kw+" ")
			} else {
				hits += counts[kw]
			}
		}
		if hits >= threshold {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
