package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
)

// Memory is a thread-safe in-memory persistence layer implementing the
// storage interfaces defined in this package. It backs tests and the
// database-less dev profile and deliberately keeps the implementation simple.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	messages []chat.Message
}

var _ HistoryStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) AppendMessages(_ context.Context, msgs []chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, msg := range msgs {
		msg.ID = m.nextID
		m.nextID++
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		m.messages = append(m.messages, msg)
	}
	return nil
}

func (m *Memory) ListMessages(_ context.Context, key chat.Key) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []chat.Message
	for _, msg := range m.messages {
		if matches(msg, key) {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CountMessages(_ context.Context, key chat.Key) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, msg := range m.messages {
		if matches(msg, key) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ClearHistory(_ context.Context, key chat.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.messages[:0]
	for _, msg := range m.messages {
		if !matches(msg, key) {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *Memory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return removed, nil
}

func matches(msg chat.Message, key chat.Key) bool {
	return msg.UserID == key.UserID && msg.OrgnID == key.OrgnID && msg.SessionID == key.SessionID
}
