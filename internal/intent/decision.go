package intent

import "strings"

// Rule names the decision rule that produced a verdict
type Rule string

const (
	RuleForced         Rule = "forced"
	RuleAutoDisabled   Rule = "auto_disabled"
	RuleMemoryQuestion Rule = "memory_question"
	RuleExplicitIntent Rule = "explicit_intent"
	RuleCourseSyntax   Rule = "course_syntax"
	RuleVolatileFact   Rule = "volatile_fact"
	RuleSmallTalk      Rule = "small_talk"
	RuleDomainKeyword  Rule = "domain_keyword"
	RuleDefault        Rule = "default"
)

// Decision is the search verdict plus the rule that produced it
type Decision struct {
	Search bool `json:"search"`
	Rule   Rule `json:"rule"`
}

// smallTalkMaxLen is the length below which greetings are treated as chit-chat.
const smallTalkMaxLen = 25

var memoryPhrases = []string{
	"what did i ask", "what did i say", "my first question", "my last question",
	"my previous question", "what was my", "earlier you said", "you said earlier",
	"did i ask", "did i mention", "what have we discussed", "what did we discuss",
	"remind me what", "what did you say", "you mentioned",
}

var explicitIntent = []string{
	"find", "search", "look up", "lookup", "link", "links", "url", "website",
	"where can i", "show me", "how do i apply", "how to apply", "google",
}

var volatileTerms = []string{
	"fee", "fees", "atar", "current", "currently", "latest", "campus", "campuses",
	"intake", "intakes", "scholarship", "scholarships", "this year", "next year",
	"open day", "deadline", "deadlines", "cost",
}

var smallTalk = []string{
	"hi", "hello", "hey", "thanks", "thank you", "thx", "cheers", "ok", "okay",
	"cool", "bye", "goodbye", "good morning", "good afternoon", "good evening",
	"great", "nice", "awesome", "yes", "no",
}

var domainKeywords = []string{
	"course", "courses", "program", "programs", "programme", "enrol", "enroll", "enrolment",
	"enrollment", "subject", "subjects", "prerequisite", "prerequisites", "credit", "semester",
	"timetable", "exam", "exams", "assessment", "degree", "major", "minor", "elective", "electives",
	"graduate", "postgraduate", "undergraduate", "admission", "admissions", "rmit",
	"bachelor", "master", "diploma", "faculty", "school", "study", "studying", "student",
	"university", "uni", "apply", "application", "accommodation", "library",
}

// ShouldSearch decides whether query warrants external retrieval. It is
// independent of the classifier and never performs I/O.
func ShouldSearch(query string, force, autoSearchAllowed bool, recentMessages []string) bool {
	return Decide(query, force, autoSearchAllowed, recentMessages).Search
}

// Decide evaluates the decision rules in order and reports the first match.
func Decide(query string, force, autoSearchAllowed bool, recentMessages []string) Decision {
	if force {
		return Decision{Search: true, Rule: RuleForced}
	}
	if !autoSearchAllowed {
		return Decision{Search: false, Rule: RuleAutoDisabled}
	}

	norm := normalize(query)

	if len(recentMessages) > 0 && containsPhrase(norm, memoryPhrases) {
		return Decision{Search: false, Rule: RuleMemoryQuestion}
	}
	if containsPhrase(norm, explicitIntent) {
		return Decision{Search: true, Rule: RuleExplicitIntent}
	}
	if HasCourseSyntax(query) {
		return Decision{Search: true, Rule: RuleCourseSyntax}
	}
	if containsPhrase(norm, volatileTerms) || yearToken.MatchString(query) {
		return Decision{Search: true, Rule: RuleVolatileFact}
	}
	if len(strings.TrimSpace(query)) < smallTalkMaxLen && containsPhrase(norm, smallTalk) {
		return Decision{Search: false, Rule: RuleSmallTalk}
	}
	if containsPhrase(norm, domainKeywords) {
		return Decision{Search: true, Rule: RuleDomainKeyword}
	}
	return Decision{Search: false, Rule: RuleDefault}
}
