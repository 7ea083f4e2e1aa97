package storage

import (
	"context"
	"time"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
)

// HistoryStore persists conversation transcripts.
type HistoryStore interface {
	// AppendMessages stores the messages in order, as one unit where the
	// backend supports it.
	AppendMessages(ctx context.Context, msgs []chat.Message) error

	// ListMessages returns the transcript for key ordered by timestamp then
	// insertion id, oldest first.
	ListMessages(ctx context.Context, key chat.Key) ([]chat.Message, error)

	// CountMessages returns the number of stored messages for key.
	CountMessages(ctx context.Context, key chat.Key) (int, error)

	// ClearHistory deletes the transcript for key.
	ClearHistory(ctx context.Context, key chat.Key) error

	// PurgeOlderThan deletes all messages with a timestamp before cutoff and
	// returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
