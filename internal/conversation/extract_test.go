package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

func TestExtractTopics(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"short conversation one hit", []string{"what are the fees"}, []string{"fees"}},
		{
			"long conversation needs two hits",
			[]string{"hello", "hi", "what are the fees", "ok", "thanks"},
			[]string{},
		},
		{
			"long conversation with repeats",
			[]string{"hello", "tuition fees?", "ok", "what about scholarships", "thanks"},
			[]string{"fees"},
		},
		{"phrase keyword", []string{"special consideration"}, []string{"academic"}},
		{"sorted", []string{"campus library and course fees"}, []string{"campus", "courses", "fees"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTopics(tt.texts))
		})
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities([]string{
		"Is COSC2123 part of the Bachelor of Computer Science (BP094)?",
		"cosc2123 has a plagiarism policy and special consideration at the Bundoora campus",
		"Census is March 31 2025, semester 1, week 4. You may apply online.",
	}, 10)

	assert.Equal(t, []string{"COSC2123"}, e.Courses)
	assert.Equal(t, []string{"BP094", "Bachelor of Computer Science"}, e.Programs)
	assert.Equal(t, []string{"Academic Integrity", "Special Consideration"}, e.Policies)
	assert.Equal(t, []string{"Bundoora", "Online"}, e.Locations)
	assert.Equal(t, []string{"march 31", "2025", "semester 1", "week 4"}, e.Dates)
}

func TestExtractEntities_Capped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		b.WriteString("COSC10")
		b.WriteString(string(rune('0' + i/10)))
		b.WriteString(string(rune('0' + i%10)))
		b.WriteString(" ")
	}

	e := ExtractEntities([]string{b.String()}, 10)

	assert.Len(t, e.Courses, 10)
	assert.Equal(t, "COSC1000", e.Courses[0])
}

func TestExtractSearchHistory(t *testing.T) {
	window := []domain.Message{
		msg(domain.RoleUser, "hi"),
		msg(domain.RoleAssistant, "Hello! See https://rmit.edu.au"),
		msg(domain.RoleUser, "find the link for enrolment"),
		msg(domain.RoleAssistant, "Here: https://rmit.edu.au/enrol. Also https://rmit.edu.au/enrol and https://rmit.edu.au/dates."),
		msg(domain.RoleUser, "COSC2123 prerequisites"),
		msg(domain.RoleAssistant, "I could not find anything."),
	}

	traces := ExtractSearchHistory(window, 5)

	require.Len(t, traces, 1)
	assert.Equal(t, "find the link for enrolment", traces[0].Query)
	assert.Equal(t, 2, traces[0].ResultCount)
	assert.Equal(t, "https://rmit.edu.au/enrol", traces[0].TopResultURL)
}

func TestExtractSearchHistory_KeepsNewest(t *testing.T) {
	var window []domain.Message
	for _, code := range []string{"COSC1001", "COSC1002", "COSC1003", "COSC1004", "COSC1005", "COSC1006", "COSC1007"} {
		window = append(window,
			msg(domain.RoleUser, code+" details"),
			msg(domain.RoleAssistant, "https://rmit.edu.au/"+code))
	}

	traces := ExtractSearchHistory(window, 5)

	require.Len(t, traces, 5)
	assert.Equal(t, "COSC1003 details", traces[0].Query)
	assert.Equal(t, "COSC1007 details", traces[4].Query)
}

func TestExtractFocus(t *testing.T) {
	tests := []struct {
		name   string
		window []domain.Message
		query  string
		want   domain.Focus
	}{
		{
			name:   "empty",
			window: nil,
			want:   domain.Focus{},
		},
		{
			name: "current query ignored",
			window: []domain.Message{
				msg(domain.RoleUser, "tell me about COSC2123"),
				msg(domain.RoleUser, "what about MATH2411"),
			},
			query: "what about MATH2411",
			want:  domain.Focus{CourseCode: "COSC2123"},
		},
		{
			name: "user turn preferred over later assistant turn",
			window: []domain.Message{
				msg(domain.RoleUser, "Bachelor of Computer Science"),
				msg(domain.RoleAssistant, "It includes COSC1076 and COSC2123."),
				msg(domain.RoleUser, "what are the prerequisites?"),
			},
			query: "what are the prerequisites?",
			want:  domain.Focus{ProgramName: "Bachelor of Computer Science"},
		},
		{
			name: "assistant turn used when user named nothing",
			window: []domain.Message{
				msg(domain.RoleUser, "what's a good IT degree"),
				msg(domain.RoleAssistant, "Consider BP162."),
			},
			query: "how long is it",
			want:  domain.Focus{ProgramCode: "BP162"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFocus(tt.window, tt.query))
		})
	}
}

func TestSummarize_Bounded(t *testing.T) {
	window := []domain.Message{msg(domain.RoleUser, strings.Repeat("why ", 200))}
	entities := domain.ConversationEntities{Courses: []string{"COSC2123"}}

	s := Summarize(window, []string{"courses", "fees"}, entities, 100)

	assert.LessOrEqual(t, len([]rune(s)), 100)
	assert.True(t, strings.HasPrefix(s, "Topics: courses, fees. Courses: COSC2123"))
}
