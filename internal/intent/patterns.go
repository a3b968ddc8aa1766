package intent

import (
	"regexp"
	"strings"
)

var (
	// codeToken matches course-code shaped tokens (letters then digits) in any case.
	codeToken = regexp.MustCompile(`(?i)\b([a-z]{2,4})(\d{3,5})\b`)

	// programCode matches program codes such as BP094, MC208 or C4415.
	programCode = regexp.MustCompile(`(?i)\b((?:bp|mc|gc|gd|ad|dp|bh)\d{3}|c\d{4,5})\b`)

	// programLead matches the "bachelor of " style opening of a degree name.
	programLead = regexp.MustCompile(`(?i)\b(advanced diploma|associate degree|graduate certificate|graduate diploma|bachelor|master|diploma|doctor|certificate (?:i{1,3}|iv))\s+of\s+`)

	yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	wordToken = regexp.MustCompile(`[a-z0-9]+`)
)

var programPrefixes = map[string]struct{}{
	"BP": {}, "MC": {}, "GC": {}, "GD": {}, "AD": {}, "DP": {}, "BH": {},
}

// programNameStop ends a captured program name.
var programNameStop = map[string]struct{}{
	"what": {}, "are": {}, "is": {}, "the": {}, "at": {}, "in": {}, "for": {}, "rmit": {},
	"program": {}, "programs": {}, "course": {}, "courses": {}, "degree": {}, "prerequisites": {},
	"prerequisite": {}, "requirements": {}, "fees": {}, "fee": {}, "entry": {}, "atar": {},
	"duration": {}, "how": {}, "when": {}, "where": {}, "cost": {}, "please": {}, "with": {},
	"structure": {}, "subjects": {}, "intake": {}, "campus": {}, "online": {}, "does": {}, "do": {},
	"or": {}, "vs": {}, "versus": {}, "bachelor": {}, "master": {}, "diploma": {}, "that": {}, "which": {},
}

// maxProgramNameWords bounds the words captured after "... of".
const maxProgramNameWords = 5

// ExtractCourseCode returns the first course-code token in text, uppercased,
// skipping tokens that are program codes. Empty when none is present.
func ExtractCourseCode(text string) string {
	for _, m := range codeToken.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(m[1])
		if _, isProgram := programPrefixes[prefix]; isProgram && len(m[2]) == 3 {
			continue
		}
		return prefix + m[2]
	}
	return ""
}

// ExtractCourseCodes returns every distinct course code in text, in order of appearance.
func ExtractCourseCodes(text string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, m := range codeToken.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(m[1])
		if _, isProgram := programPrefixes[prefix]; isProgram && len(m[2]) == 3 {
			continue
		}
		code := prefix + m[2]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// ExtractProgramCode returns the first program code in text, uppercased.
func ExtractProgramCode(text string) string {
	m := programCode.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// ExtractProgramCodes returns every distinct program code in text, uppercased.
func ExtractProgramCodes(text string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, m := range programCode.FindAllStringSubmatch(text, -1) {
		code := strings.ToUpper(m[1])
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// ExtractProgramName returns a title-cased degree name such as
// "Bachelor of Computer Science", or "" when text names no program.
func ExtractProgramName(text string) string {
	names := ExtractProgramNames(text)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// ExtractProgramNames returns every distinct degree name in text.
func ExtractProgramNames(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, loc := range programLead.FindAllStringSubmatchIndex(text, -1) {
		level := strings.ToLower(text[loc[2]:loc[3]])
		var words []string
		for _, field := range strings.Fields(text[loc[1]:]) {
			w := strings.ToLower(field)
			trimmed := strings.TrimRight(w, ".,;:!?)'\"")
			if trimmed == "" || !isNameWord(trimmed) {
				break
			}
			if _, stop := programNameStop[trimmed]; stop {
				break
			}
			words = append(words, trimmed)
			if trimmed != w || len(words) == maxProgramNameWords {
				break
			}
		}
		for len(words) > 0 && words[len(words)-1] == "and" {
			words = words[:len(words)-1]
		}
		if len(words) == 0 {
			continue
		}
		name := titleCase(level) + " of " + titleCase(strings.Join(words, " "))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func isNameWord(w string) bool {
	for _, r := range w {
		if (r < 'a' || r > 'z') && r != '-' && r != '(' && r != ')' {
			return false
		}
	}
	return true
}

// HasCourseSyntax reports whether text contains a course code, program code or degree name.
func HasCourseSyntax(text string) bool {
	return codeToken.MatchString(text) || programCode.MatchString(text) || programLead.MatchString(text)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "and" || w == "of" || w == "in" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// containsPhrase reports whether any phrase appears in the normalized text on word boundaries.
func containsPhrase(text string, phrases []string) bool {
	padded := " " + wordsOnly(text) + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// containsPrefix reports whether any word in text starts with one of the stems.
func containsPrefix(text string, stems []string) bool {
	for _, w := range wordToken.FindAllString(strings.ToLower(text), -1) {
		for _, s := range stems {
			if strings.HasPrefix(w, s) {
				return true
			}
		}
	}
	return false
}

func wordsOnly(text string) string {
	return strings.Join(wordToken.FindAllString(strings.ToLower(text), -1), " ")
}
