package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		title   string
		content string
		want    domain.KnowledgeCategory
	}{
		{"program page", "https://www.rmit.edu.au/study-with-us/bachelor-of-computer-science-bp094", "Bachelor of Computer Science", "A degree in computing.", domain.KnowledgeCategoryCourseInfo},
		{"policy url", "https://policies.rmit.edu.au/document/view.php?id=7", "Assessment policy", "This policy sets rules.", domain.KnowledgeCategoryPolicies},
		{"support", "https://www.rmit.edu.au/students/wellbeing", "Wellbeing", "Free counselling and advice.", domain.KnowledgeCategoryStudentSupport},
		{"no hits", "https://www.rmit.edu.au/about", "About us", "A place in Melbourne.", domain.KnowledgeCategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.url, tt.title, tt.content))
		})
	}
}

func TestCategorize_OnlyFirstThousandCharsOfContent(t *testing.T) {
	content := strings.Repeat("x", 1000) + " scholarship fees payment"
	assert.Equal(t, domain.KnowledgeCategoryGeneral, Categorize("https://www.rmit.edu.au/a", "A", content))
}

func TestExtractCodes(t *testing.T) {
	got := ExtractCodes("Take COSC2123 after COSC1076. Part of BP094 and C4415. Not XYZ123 or ABCDE12345.")
	assert.Equal(t, []string{"BP094", "C4415", "COSC1076", "COSC2123"}, got)
	assert.Nil(t, ExtractCodes("no codes here"))
}

func TestCodeFromURL(t *testing.T) {
	assert.Equal(t, "BP094", CodeFromURL("https://www.rmit.edu.au/study-with-us/bachelor-of-computer-science-bp094"))
	assert.Equal(t, "MC208", CodeFromURL("https://www.rmit.edu.au/master-of-it-mc208/"))
	assert.Empty(t, CodeFromURL("https://www.rmit.edu.au/students"))
}

func TestTags(t *testing.T) {
	tags := Tags(domain.KnowledgeCategoryCourseInfo, "This course supports students. See the policy.", []string{"BP094"})
	assert.Equal(t, []string{"course-information", "course", "policy", "student", "support", "BP094"}, tags)

	many := make([]string, 30)
	for i := range many {
		many[i] = "COSC" + string(rune('A'+i))
	}
	assert.Len(t, Tags(domain.KnowledgeCategoryGeneral, "", many), domain.MaxKnowledgeTags)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, Priority(domain.KnowledgeCategoryGeneral, []string{"general-information"}, "short"))
	assert.Equal(t, 10, Priority(domain.KnowledgeCategoryCourseInfo, []string{"BP094"}, strings.Repeat("a", 2000)))
	assert.Equal(t, 10, Priority(domain.KnowledgeCategoryPolicies, []string{"policies", "COSC2123"}, "short"))
	assert.Equal(t, 8, Priority(domain.KnowledgeCategoryFees, nil, strings.Repeat("a", 1001)))
}

func TestStructuredData(t *testing.T) {
	data := StructuredData(domain.KnowledgeCategoryCourseInfo,
		"Duration: 3 years full-time. 288 credit points. ATAR: 80.5. Campus: Melbourne City.",
		[]string{"BP094"}, "https://www.rmit.edu.au/bp094")
	assert.Equal(t, "BP094", data["course_code"])
	assert.Equal(t, "3 years", data["duration"])
	assert.Equal(t, "288", data["credit_points"])
	assert.Equal(t, "80.5", data["atar"])
	assert.Equal(t, "Melbourne City", data["campus"])
	assert.Equal(t, "https://www.rmit.edu.au/bp094", data["source_url"])

	fees := StructuredData(domain.KnowledgeCategoryFees, "Fees are $1,200.50 or $900.", nil, "")
	assert.Equal(t, []string{"1,200.50", "900"}, fees["amounts"])

	assert.Nil(t, StructuredData(domain.KnowledgeCategoryGeneral, "nothing", nil, ""))
}
