package retrieval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

func result(title, content, url string, source domain.SourceKind, score float64) domain.SearchResult {
	return domain.NewSearchResult("id", title, content, url, source, score, "q", time.Unix(0, 0))
}

func TestScorer_ScoreWithinBounds(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	cls := domain.QueryClassification{
		Entities: domain.QueryEntities{CourseCode: "COSC1234", Keywords: []string{"computer", "science"}},
	}
	in := NewInput("Bachelor of Computer Science", cls, "RMIT")

	cases := []domain.SearchResult{
		result("Bachelor of Computer Science", "computer science bachelor rmit cosc1234", "https://rmit.edu.au/cs", domain.SourceWeb, 1),
		result("", "", "https://rmit.edu.au/", domain.SourceWeb, 0),
		result("Home", "computer", "https://rmit.edu.au/", domain.SourceOfficialStatic, 0.3),
		result("COSC1234 Algorithms", "bachelor course", "https://rmit.edu.au/cosc1234", domain.SourceKnowledgeStore, 1),
	}
	for _, r := range cases {
		got := s.Score(r, in)
		assert.GreaterOrEqual(t, got, 0.0, r.Title)
		assert.LessOrEqual(t, got, 1.0, r.Title)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	in := NewInput("data science masters", domain.QueryClassification{}, "RMIT")
	r := result("Master of Data Science", "Study data science at RMIT", "https://rmit.edu.au/mds", domain.SourceWeb, 0.8)

	assert.Equal(t, s.Score(r, in), s.Score(r, in))
}

func TestScorer_TitleMatchBeatsUnrelated(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	in := NewInput("master of data science", domain.QueryClassification{}, "RMIT")

	exact := result("Master of Data Science", "", "https://rmit.edu.au/a", domain.SourceWeb, 0.5)
	unrelated := result("Parking permits", "Buy a parking permit", "https://rmit.edu.au/b", domain.SourceWeb, 0.5)

	assert.Greater(t, s.Score(exact, in), s.Score(unrelated, in))
}

func TestScorer_GenericTitlePenalised(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	in := NewInput("rmit courses", domain.QueryClassification{}, "RMIT")

	generic := result("Home | RMIT University", "rmit courses", "https://rmit.edu.au/", domain.SourceWeb, 0.9)
	specific := result("Courses at RMIT University", "rmit courses", "https://rmit.edu.au/courses", domain.SourceWeb, 0.9)

	assert.Less(t, s.Score(generic, in), s.Score(specific, in))
}

func TestScorer_EntityBoost(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	cls := domain.QueryClassification{Entities: domain.QueryEntities{CourseCode: "COSC2123"}}
	in := NewInput("COSC2123 assessment", cls, "RMIT")

	tagged := result("Algorithms and Analysis", "assessment", "https://rmit.edu.au/x", domain.SourceKnowledgeStore, 0.5).WithEntityCode("COSC2123")
	plain := result("Algorithms and Analysis", "assessment", "https://rmit.edu.au/y", domain.SourceKnowledgeStore, 0.5)

	assert.Greater(t, s.Score(tagged, in), s.Score(plain, in))
}

func TestIsProtected(t *testing.T) {
	cls := domain.QueryClassification{
		Entities: domain.QueryEntities{CourseCode: "COSC2123", ProgramName: "Bachelor of Computer Science"},
	}
	in := NewInput("COSC2123", cls, "RMIT")

	tests := []struct {
		name string
		r    domain.SearchResult
		want bool
	}{
		{"entity code tag", result("x", "", "https://a/x", domain.SourceWeb, 0).WithEntityCode("cosc2123"), true},
		{"code in title", result("COSC2123 Algorithms", "", "https://a/x", domain.SourceWeb, 0), true},
		{"code in url", result("Course", "", "https://a/courses/cosc2123", domain.SourceWeb, 0), true},
		{"code as substring only", result("COSC21234", "", "https://a/x", domain.SourceWeb, 0), false},
		{"program name in title", result("Bachelor of Computer Science (BP094)", "", "https://a/bp", domain.SourceWeb, 0), true},
		{"unrelated", result("Library", "", "https://a/lib", domain.SourceWeb, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProtected(tt.r, in))
		})
	}
}

func TestScorer_StrategyScoreAloneDoesNotPassThreshold(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	cls := domain.QueryClassification{Entities: domain.QueryEntities{CourseCode: "COSC2123"}}
	in := NewInput("COSC2123 prerequisites", cls, "RMIT")

	tests := []struct {
		name string
		r    domain.SearchResult
	}{
		{"top ranked web hit", result("Car parking", "Parking on campus", "https://rmit.edu.au/parking", domain.SourceWeb, 0.95)},
		{"high priority knowledge item", result("Library hours", "Opening times", "https://rmit.edu.au/library", domain.SourceKnowledgeStore, priorityScore(9))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Less(t, s.Score(tt.r, in), DefaultScoringConfig().MinRelevance)
			assert.Empty(t, Filter(s.ScoreAll([]domain.SearchResult{tt.r}, in), in, DefaultScoringConfig().MinRelevance))
		})
	}
}

func TestScorer_StrategyScoreOrdersRelevantResults(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())
	in := NewInput("science data", domain.QueryClassification{}, "RMIT")

	first := result("Data Science electives", "", "https://rmit.edu.au/a", domain.SourceWeb, 0.95)
	later := result("Data Science electives", "", "https://rmit.edu.au/b", domain.SourceWeb, 0.4)

	assert.Greater(t, s.Score(first, in), s.Score(later, in))
	assert.Equal(t, s.Relevance(first, in), s.Relevance(later, in))
}

func TestScorer_TermsMatchWholeWords(t *testing.T) {
	s := NewScorer(DefaultScoringConfig())

	permits := result("Parking permits", "Apply for parking permits online", "https://rmit.edu.au/permits", domain.SourceWeb, 0.95)
	assert.Zero(t, s.Relevance(permits, NewInput("COSC2123 prerequisites", domain.QueryClassification{}, "RMIT")))

	startups := result("Department of Startups", "Startup support", "https://rmit.edu.au/startups", domain.SourceWeb, 0.9)
	assert.Less(t, s.Score(startups, NewInput("art history", domain.QueryClassification{}, "RMIT")), DefaultScoringConfig().MinRelevance)
}

func TestMatchesTerm(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"study at rmit university", "rmit", true},
		{"parking permits", "rmit", false},
		{"department of startups", "art", false},
		{"art and design", "art", true},
		{"undergraduate courses", "course", true},
		{"associate degrees", "associate degree", true},
		{"prerequisite: cosc2123.", "cosc2123", true},
		{"cosc21234", "cosc2123", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesTerm(tt.text, tt.term))
		})
	}
}
