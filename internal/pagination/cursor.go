// Package pagination implements keyset cursors for knowledge listings,
// which are ordered by priority, then last update, then id, all descending.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Cursor is the position of the last item on a page.
type Cursor struct {
	LastID    string
	Priority  int
	Timestamp time.Time
}

// PageResult is one page of items.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor encodes the keyset of the last item as URL-safe base64.
func EncodeCursor(lastID string, priority int, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + strconv.Itoa(priority) + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 || parts[0] == "" {
		return nil, ErrInvalidCursor
	}

	priority, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    parts[0],
		Priority:  priority,
		Timestamp: timestamp,
	}, nil
}

// CreateNextCursor returns the cursor after a full page, or "" when items
// is shorter than limit.
func CreateNextCursor[T any](items []T, limit int, key func(T) (string, int, time.Time)) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	id, priority, ts := key(items[len(items)-1])
	return EncodeCursor(id, priority, ts)
}
