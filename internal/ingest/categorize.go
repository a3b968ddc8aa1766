package ingest

import (
	"regexp"
	"slices"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

type categoryKeywords struct {
	category domain.KnowledgeCategory
	keywords []string
}

// Evaluated in order; the first category wins ties.
var categoryTable = []categoryKeywords{
	{domain.KnowledgeCategoryCourseInfo, []string{"course", "program", "bachelor", "master", "diploma", "certificate", "degree"}},
	{domain.KnowledgeCategorySubjectInfo, []string{"subject", "unit", "elective", "core", "prerequisite", "curriculum", "syllabus", "handbook"}},
	{domain.KnowledgeCategoryPolicies, []string{"policy", "policies", "regulation", "procedure", "guideline", "rule"}},
	{domain.KnowledgeCategoryStudentSupport, []string{"support", "help", "service", "wellbeing", "counselling", "advice"}},
	{domain.KnowledgeCategoryEnrollment, []string{"enrol", "enrollment", "admission", "apply", "application", "entry"}},
	{domain.KnowledgeCategoryFees, []string{"fees", "cost", "scholarship", "financial", "payment"}},
	{domain.KnowledgeCategoryAcademicInfo, []string{"academic", "calendar", "timetable", "exam", "assessment", "grade"}},
	{domain.KnowledgeCategoryStudentLife, []string{"student life", "campus", "accommodation", "facilities", "clubs"}},
	{domain.KnowledgeCategoryResearch, []string{"research", "phd", "doctorate", "thesis", "publication"}},
	{domain.KnowledgeCategoryCareers, []string{"career", "employment", "job", "internship", "placement"}},
	{domain.KnowledgeCategoryInternational, []string{"international", "visa", "overseas", "exchange"}},
	{domain.KnowledgeCategoryOnline, []string{"online", "remote", "digital", "e-learning"}},
	{domain.KnowledgeCategoryFAQ, []string{"faq", "frequently asked", "question", "answer", "help", "guide", "common"}},
	{domain.KnowledgeCategoryForms, []string{"form", "document", "template", "download"}},
	{domain.KnowledgeCategoryContact, []string{"contact", "enquiry", "inquiry", "ask", "email", "phone"}},
}

var categoryPriority = map[domain.KnowledgeCategory]int{
	domain.KnowledgeCategoryCourseInfo:     10,
	domain.KnowledgeCategorySubjectInfo:    9,
	domain.KnowledgeCategoryPolicies:       8,
	domain.KnowledgeCategoryStudentSupport: 8,
	domain.KnowledgeCategoryEnrollment:     7,
	domain.KnowledgeCategoryFees:           7,
}

const (
	basePriority      = 5
	categorySampleLen = 1000
	longContentLen    = 1000
)

// Categorize scores every category by keyword hits: 3 per hit in the URL, 2
// in the title and 1 in the first 1000 characters of content. Pages with no
// hits are general information.
func Categorize(pageURL, title, content string) domain.KnowledgeCategory {
	u := strings.ToLower(pageURL)
	t := strings.ToLower(title)
	c := strings.ToLower(truncateBytes(content, categorySampleLen))

	best := domain.KnowledgeCategoryGeneral
	bestScore := 0
	for _, entry := range categoryTable {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(u, kw) {
				score += 3
			}
			if strings.Contains(t, kw) {
				score += 2
			}
			if strings.Contains(c, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.category, score
		}
	}
	return best
}

var (
	codePattern      = regexp.MustCompile(`\b([A-Z]{2,4}\d{3,5})\b`)
	shortCodePattern = regexp.MustCompile(`\b([A-Z]\d{4,5})\b`)
	letterCode       = regexp.MustCompile(`^[A-Z]\d{4,5}$`)
	tagCodePattern   = regexp.MustCompile(`^[A-Z]{2,4}\d{3,5}$`)
	urlCodePattern   = regexp.MustCompile(`[-/]([a-z]{2,4}\d{3,5})(?:[-/]|$)`)
)

// ValidCodePrefixes are the program and course code prefixes used by the
// institution.
var ValidCodePrefixes = []string{
	"BP", "MC", "GC", "GD", "AD", "FS", "C", "COSC", "MATH", "BUSM",
	"ARCH", "COMM", "DESI", "ENGG", "NURS", "PSYC", "EDUC", "SCIEN",
	"MKTG", "ACCT", "ECON", "MGMT", "INFO", "COMP", "SOFT", "DATA",
	"HUSO", "LANG", "BIOL", "CHEM", "PHYS", "GEOM", "STAT",
}

// ExtractCodes returns the sorted distinct program and course codes in text
// whose prefix is recognised.
func ExtractCodes(text string) []string {
	set := make(map[string]struct{})
	for _, re := range []*regexp.Regexp{codePattern, shortCodePattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if validCode(m[1]) {
				set[m[1]] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// CodeFromURL returns the code embedded in a program page slug such as
// ".../bachelor-of-computer-science-bp094".
func CodeFromURL(pageURL string) string {
	m := urlCodePattern.FindStringSubmatch(strings.ToLower(pageURL))
	if m == nil {
		return ""
	}
	code := strings.ToUpper(m[1])
	if !validCode(code) {
		return ""
	}
	return code
}

func validCode(code string) bool {
	if len(code) < 4 || len(code) > 8 {
		return false
	}
	if letterCode.MatchString(code) {
		return true
	}
	for _, p := range ValidCodePrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Tags returns the category, topic tags present in content and the codes,
// limited to domain.MaxKnowledgeTags.
func Tags(category domain.KnowledgeCategory, content string, codes []string) []string {
	lower := strings.ToLower(content)
	tags := []string{string(category)}
	add := func(tag string) {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	if strings.Contains(lower, "course") {
		add("course")
	}
	if strings.Contains(lower, "policy") || strings.Contains(lower, "procedure") {
		add("policy")
	}
	if strings.Contains(lower, "student") {
		add("student")
	}
	if strings.Contains(lower, "support") || strings.Contains(lower, "service") {
		add("support")
	}
	for _, code := range codes {
		add(code)
	}
	if len(tags) > domain.MaxKnowledgeTags {
		tags = tags[:domain.MaxKnowledgeTags]
	}
	return tags
}

// Priority ranks an item from its category, with +2 when a tag is a course
// code and +1 for long content, capped at domain.MaxKnowledgePriority.
func Priority(category domain.KnowledgeCategory, tags []string, content string) int {
	p, ok := categoryPriority[category]
	if !ok {
		p = basePriority
	}
	for _, t := range tags {
		if tagCodePattern.MatchString(t) {
			p += 2
			break
		}
	}
	if len(content) > longContentLen {
		p++
	}
	return min(p, domain.MaxKnowledgePriority)
}

var (
	reDuration     = regexp.MustCompile(`(?i)duration[:\s]+(\d+(?:\.\d+)?\s*(?:year|month|week|semester)s?)`)
	reCredits      = regexp.MustCompile(`(?i)(\d+)\s*credit\s*points?`)
	reATAR         = regexp.MustCompile(`(?i)ATAR[:\s]+(\d{1,2}(?:\.\d{1,2})?)`)
	reIntake       = regexp.MustCompile(`(?i)intakes?[:\s]+([^.;]{3,120})`)
	reCampus       = regexp.MustCompile(`(?i)campus(?:es)?[:\s]+([^.;]{3,120})`)
	rePolicyNumber = regexp.MustCompile(`(?i)policy\s*(?:number|#|no\.?)[:\s]*([A-Z0-9][A-Z0-9\-.]*)`)
	reEffective    = regexp.MustCompile(`(?i)effective\s*(?:from|date)?[:\s]+([^.;]{3,80})`)
	reAmount       = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{2})?)`)
)

// StructuredData pulls category-specific fields out of page text.
func StructuredData(category domain.KnowledgeCategory, content string, codes []string, canonical string) map[string]any {
	data := make(map[string]any)
	first := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(content); m != nil {
			data[key] = strings.TrimSpace(m[1])
		}
	}

	switch category {
	case domain.KnowledgeCategoryCourseInfo:
		if len(codes) > 0 {
			data["course_code"] = codes[0]
		}
		first("duration", reDuration)
		first("credit_points", reCredits)
		first("atar", reATAR)
		first("campus", reCampus)
		first("intake", reIntake)
	case domain.KnowledgeCategorySubjectInfo:
		if len(codes) > 0 {
			data["subject_codes"] = codes
		}
		first("credit_points", reCredits)
	case domain.KnowledgeCategoryPolicies:
		first("policy_number", rePolicyNumber)
		first("effective_date", reEffective)
	case domain.KnowledgeCategoryFees:
		var amounts []string
		for _, m := range reAmount.FindAllStringSubmatch(content, 5) {
			amounts = append(amounts, m[1])
		}
		if len(amounts) > 0 {
			data["amounts"] = amounts
		}
	}
	if canonical != "" {
		data["source_url"] = canonical
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
