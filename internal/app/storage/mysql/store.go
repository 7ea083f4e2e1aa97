// Package mysql implements the history store on MySQL/MariaDB.
package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	"github.com/fklc-labs/chatbot-service/internal/app/storage"
)

// Store implements the storage interfaces backed by MySQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.HistoryStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// messageRow mirrors the chat_history table.
type messageRow struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	OrgnID    string    `db:"orgn_id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}

func (r messageRow) toDomain() chat.Message {
	return chat.Message{
		ID:        r.ID,
		UserID:    r.UserID,
		OrgnID:    r.OrgnID,
		SessionID: r.SessionID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Timestamp: r.Timestamp,
	}
}

func (s *Store) AppendMessages(ctx context.Context, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, msg := range msgs {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_history (user_id, orgn_id, session_id, role, content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.UserID, msg.OrgnID, msg.SessionID, string(msg.Role), msg.Content, ts)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListMessages(ctx context.Context, key chat.Key) ([]chat.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, orgn_id, session_id, role, content, timestamp
		FROM chat_history
		WHERE user_id = ? AND orgn_id = ? AND session_id = ?
		ORDER BY timestamp ASC, id ASC
	`, key.UserID, key.OrgnID, key.SessionID)
	if err != nil {
		return nil, err
	}

	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toDomain())
	}
	return msgs, nil
}

func (s *Store) CountMessages(ctx context.Context, key chat.Key) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_history
		WHERE user_id = ? AND orgn_id = ? AND session_id = ?
	`, key.UserID, key.OrgnID, key.SessionID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ClearHistory(ctx context.Context, key chat.Key) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_history
		WHERE user_id = ? AND orgn_id = ? AND session_id = ?
	`, key.UserID, key.OrgnID, key.SessionID)
	return err
}

func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_history WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
