package conversation

import (
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

var questionLeads = []string{
	"what", "how", "when", "where", "which", "who", "why", "can", "could", "is", "are", "do", "does", "should",
}

// Summarize condenses the window into one bounded line: topics, courses,
// programs and the first question the user asked.
func Summarize(window []domain.Message, topics []string, entities domain.ConversationEntities, maxLen int) string {
	var parts []string
	if len(topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(topics, ", "))
	}
	if len(entities.Courses) > 0 {
		parts = append(parts, "Courses: "+strings.Join(entities.Courses, ", "))
	}
	if len(entities.Programs) > 0 {
		parts = append(parts, "Programs: "+strings.Join(entities.Programs, ", "))
	}
	if q := firstQuestion(window); q != "" {
		parts = append(parts, "First question: "+domain.TruncateRunes(q, 120))
	}
	return domain.TruncateRunes(strings.Join(parts, ". "), maxLen)
}

func firstQuestion(window []domain.Message) string {
	first := ""
	for _, m := range window {
		if m.Role != domain.RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if text == "" {
			continue
		}
		if first == "" {
			first = text
		}
		if isQuestion(text) {
			return text
		}
	}
	return first
}

func isQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	ws := words(text)
	if len(ws) == 0 {
		return false
	}
	for _, lead := range questionLeads {
		if ws[0] == lead {
			return true
		}
	}
	return false
}
