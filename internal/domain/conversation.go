package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one persisted conversation turn
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a new Message instance
func NewMessage(id, sessionID string, role Role, content string, createdAt time.Time) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if m.SessionID == "" {
		return fmt.Errorf("message SessionID is required")
	}
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("message Role is invalid: %s", m.Role)
	}
	return nil
}

// ConversationEntities groups the entities mentioned across a session window
type ConversationEntities struct {
	Courses   []string `json:"courses"`
	Programs  []string `json:"programs"`
	Policies  []string `json:"policies"`
	Locations []string `json:"locations"`
	Dates     []string `json:"dates"`
}

// IsEmpty reports whether no entity of any kind was found.
func (e ConversationEntities) IsEmpty() bool {
	return len(e.Courses) == 0 && len(e.Programs) == 0 && len(e.Policies) == 0 &&
		len(e.Locations) == 0 && len(e.Dates) == 0
}

// SearchTrace records one earlier search visible in the conversation
type SearchTrace struct {
	Query        string `json:"query"`
	ResultCount  int    `json:"result_count"`
	TopResultURL string `json:"top_result_url,omitempty"`
}

// ConversationContext is derived state for a session, recomputed on every call
type ConversationContext struct {
	SessionID      string               `json:"session_id"`
	RecentMessages []Message            `json:"recent_messages"`
	Summary        string               `json:"summary,omitempty"`
	Topics         []string             `json:"topics"`
	Entities       ConversationEntities `json:"entities"`
	SearchHistory  []SearchTrace        `json:"search_history"`
	Focus          Focus                `json:"focus"`
}

// RecentTexts returns message contents in chronological order.
func (c *ConversationContext) RecentTexts() []string {
	if c == nil {
		return nil
	}
	texts := make([]string, 0, len(c.RecentMessages))
	for _, m := range c.RecentMessages {
		texts = append(texts, m.Content)
	}
	return texts
}

// PriorTexts returns the window's message contents without a trailing
// message that repeats currentQuery.
func (c *ConversationContext) PriorTexts(currentQuery string) []string {
	texts := c.RecentTexts()
	if n := len(texts); n > 0 && strings.TrimSpace(texts[n-1]) == strings.TrimSpace(currentQuery) {
		texts = texts[:n-1]
	}
	return texts
}
