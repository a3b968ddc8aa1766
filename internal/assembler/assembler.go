// Package assembler formats conversation context and search results into
// the bounded text bundle handed to the answer generator.
package assembler

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

const (
	// MaxChars bounds the assembled bundle.
	MaxChars = 6000
	// MaxTurns is how many recent messages are included.
	MaxTurns = 6
	// MaxTurnChars bounds each included message.
	MaxTurnChars = 300
)

// Assemble renders query, conversation context and search results as plain
// text. Either ctx or resp may be nil.
func Assemble(query string, ctx *domain.ConversationContext, resp *domain.SearchResponse) string {
	var b strings.Builder

	if ctx != nil {
		if ctx.Summary != "" {
			fmt.Fprintf(&b, "Conversation summary: %s\n\n", ctx.Summary)
		}
		if len(ctx.Topics) > 0 {
			fmt.Fprintf(&b, "Topics discussed: %s\n\n", strings.Join(ctx.Topics, ", "))
		}
		if turns := recentTurns(ctx.RecentMessages, query); len(turns) > 0 {
			b.WriteString("Recent conversation:\n")
			for _, m := range turns {
				fmt.Fprintf(&b, "%s: %s\n", m.Role, domain.TruncateRunes(oneLine(m.Content), MaxTurnChars))
			}
			b.WriteString("\n")
		}
	}

	if resp != nil && len(resp.Results) > 0 {
		b.WriteString("Search results:\n")
		for i, r := range resp.Results {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, oneLine(r.Title), r.URL)
			if c := oneLine(r.Content); c != "" {
				fmt.Fprintf(&b, "%s\n", c)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "Question: %s", strings.TrimSpace(query))

	return bound(b.String(), strings.TrimSpace(query))
}

// recentTurns returns the last MaxTurns messages before the current query.
func recentTurns(messages []domain.Message, query string) []domain.Message {
	if n := len(messages); n > 0 && strings.TrimSpace(messages[n-1].Content) == strings.TrimSpace(query) {
		messages = messages[:n-1]
	}
	if len(messages) > MaxTurns {
		messages = messages[len(messages)-MaxTurns:]
	}
	return messages
}

// bound keeps the question intact and cuts the end of the context before it,
// so the summary and the top-ranked results survive.
func bound(s, query string) string {
	runes := []rune(s)
	if len(runes) <= MaxChars {
		return s
	}
	tail := "\nQuestion: " + query
	tailLen := len([]rune(tail))
	if tailLen >= MaxChars {
		return domain.TruncateRunes(strings.TrimPrefix(tail, "\n"), MaxChars)
	}
	return string(runes[:MaxChars-tailLen]) + tail
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
