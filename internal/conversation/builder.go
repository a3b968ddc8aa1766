// Package conversation derives per-session context from the recent message
// window: topics, entities, a short summary, earlier searches and the
// course or program the conversation is currently about.
package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// MessageStore reads a session's persisted history.
type MessageStore interface {
	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
}

// Config bounds the analysed window and its derived fields.
type Config struct {
	HistoryLimit     int
	SummaryThreshold int
	MaxEntities      int
	MaxSearchHistory int
	SummaryMaxLen    int
}

// DefaultConfig returns the production window sizes.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:     20,
		SummaryThreshold: 6,
		MaxEntities:      10,
		MaxSearchHistory: 5,
		SummaryMaxLen:    300,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.SummaryThreshold <= 0 {
		c.SummaryThreshold = d.SummaryThreshold
	}
	if c.MaxEntities <= 0 {
		c.MaxEntities = d.MaxEntities
	}
	if c.MaxSearchHistory <= 0 {
		c.MaxSearchHistory = d.MaxSearchHistory
	}
	if c.SummaryMaxLen <= 0 {
		c.SummaryMaxLen = d.SummaryMaxLen
	}
	return c
}

// Builder computes a ConversationContext for a session.
type Builder struct {
	store  MessageStore
	cfg    Config
	logger *zap.Logger
}

// NewBuilder creates a Builder. A nil store yields empty windows.
func NewBuilder(store MessageStore, cfg Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// Build reads the session window and analyses it together with the current
// query. A failing store degrades to an empty history.
func (b *Builder) Build(ctx context.Context, sessionID, currentQuery string) (*domain.ConversationContext, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrSessionRequired
	}

	ctx, span := telemetry.StartSpan(ctx, "conversation.build", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "build_context",
	})
	defer span.End()

	var history []domain.Message
	if b.store != nil {
		msgs, err := b.store.RecentMessages(ctx, sessionID, b.cfg.HistoryLimit)
		if err != nil {
			b.logger.Warn("message history unavailable, continuing with empty window",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			history = msgs
		}
	}

	window := Window(sessionID, history, currentQuery, b.cfg.HistoryLimit)
	span.SetData("messages", len(window))
	return Analyze(sessionID, window, currentQuery, b.cfg), nil
}

// Window appends the current query to history as a user turn unless it is
// already the last message, then keeps the newest limit messages.
func Window(sessionID string, history []domain.Message, currentQuery string, limit int) []domain.Message {
	window := make([]domain.Message, 0, len(history)+1)
	window = append(window, history...)

	q := strings.TrimSpace(currentQuery)
	if q != "" {
		n := len(window)
		if n == 0 || strings.TrimSpace(window[n-1].Content) != q {
			window = append(window, domain.Message{SessionID: sessionID, Role: domain.RoleUser, Content: q})
		}
	}
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window
}

// Analyze derives the context from a window. It is a pure function of its
// arguments.
func Analyze(sessionID string, window []domain.Message, currentQuery string, cfg Config) *domain.ConversationContext {
	cfg = cfg.withDefaults()

	texts := make([]string, len(window))
	for i, m := range window {
		texts[i] = m.Content
	}

	topics := ExtractTopics(texts)
	entities := ExtractEntities(texts, cfg.MaxEntities)

	cc := &domain.ConversationContext{
		SessionID:      sessionID,
		RecentMessages: window,
		Topics:         topics,
		Entities:       entities,
		SearchHistory:  ExtractSearchHistory(window, cfg.MaxSearchHistory),
		Focus:          ExtractFocus(window, currentQuery),
	}
	if len(window) >= cfg.SummaryThreshold {
		cc.Summary = Summarize(window, topics, entities, cfg.SummaryMaxLen)
	}
	return cc
}
