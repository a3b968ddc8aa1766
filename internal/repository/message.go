package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// MessageRepository reads and appends conversation turns.
type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

// RecentMessages returns the newest limit messages of a session in
// chronological order.
func (r *MessageRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, created_at FROM (
		     SELECT id, session_id, role, content, created_at
		     FROM messages
		     WHERE session_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	if err := domain.ValidateMessage(m); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid message", err)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt,
	)
	return err
}
