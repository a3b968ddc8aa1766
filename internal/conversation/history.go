package conversation

import (
	"regexp"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/intent"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\])]+`)

const maxTraceQueryLen = 200

// ExtractSearchHistory finds user turns the decision engine would search
// for that were answered by an assistant turn citing URLs. The newest limit
// traces are kept, oldest first.
func ExtractSearchHistory(window []domain.Message, limit int) []domain.SearchTrace {
	traces := []domain.SearchTrace{}
	for i := 0; i+1 < len(window); i++ {
		user, reply := window[i], window[i+1]
		if user.Role != domain.RoleUser || reply.Role != domain.RoleAssistant {
			continue
		}
		if !intent.ShouldSearch(user.Content, false, true, nil) {
			continue
		}
		urls := distinctURLs(reply.Content)
		if len(urls) == 0 {
			continue
		}
		traces = append(traces, domain.SearchTrace{
			Query:        domain.TruncateRunes(strings.TrimSpace(user.Content), maxTraceQueryLen),
			ResultCount:  len(urls),
			TopResultURL: urls[0],
		})
	}
	if len(traces) > limit {
		traces = traces[len(traces)-limit:]
	}
	return traces
}

func distinctURLs(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ExtractFocus returns the course or program the conversation was last
// about, ignoring a trailing message that is the current query. User turns
// win over assistant turns.
func ExtractFocus(window []domain.Message, currentQuery string) domain.Focus {
	prior := window
	if n := len(prior); n > 0 && strings.TrimSpace(prior[n-1].Content) == strings.TrimSpace(currentQuery) {
		prior = prior[:n-1]
	}

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAssistant} {
		for i := len(prior) - 1; i >= 0; i-- {
			if prior[i].Role != role {
				continue
			}
			if f := focusOf(prior[i].Content); !f.IsZero() {
				return f
			}
		}
	}
	return domain.Focus{}
}

func focusOf(text string) domain.Focus {
	return domain.Focus{
		CourseCode:  intent.ExtractCourseCode(text),
		ProgramCode: intent.ExtractProgramCode(text),
		ProgramName: intent.ExtractProgramName(text),
	}
}
