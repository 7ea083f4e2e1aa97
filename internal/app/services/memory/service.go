// Package memory manages conversation transcripts and the token-bounded
// history window fed back into the model.
package memory

import (
	"context"
	"fmt"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	"github.com/fklc-labs/chatbot-service/internal/app/storage"
	"github.com/fklc-labs/chatbot-service/internal/logging"
	"github.com/fklc-labs/chatbot-service/internal/tokens"
)

// Service provides transcript persistence with token-window retrieval.
type Service struct {
	store   storage.HistoryStore
	counter tokens.Counter
	cache   TranscriptCache
	log     *logging.Logger
}

// New constructs a memory service.
func New(store storage.HistoryStore, counter tokens.Counter, log *logging.Logger) *Service {
	if counter == nil {
		counter = tokens.NewEstimateCounter()
	}
	if log == nil {
		log = logging.NewDefault("memory")
	}
	return &Service{
		store:   store,
		counter: counter,
		log:     log,
	}
}

// WithCache assigns a transcript cache. Call before serving traffic.
func (s *Service) WithCache(cache TranscriptCache) {
	s.cache = cache
}

// History returns the full transcript for key, oldest first.
func (s *Service) History(ctx context.Context, key chat.Key) ([]chat.Message, error) {
	if s.cache != nil {
		if msgs, ok := s.cache.Get(ctx, key); ok {
			return msgs, nil
		}
	}

	msgs, err := s.store.ListMessages(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, msgs)
	}
	return msgs, nil
}

// Window returns the oldest-first prefix of the transcript whose cumulative
// token count stays within maxTokens. Iteration stops at the first message
// that would overflow the budget.
func (s *Service) Window(ctx context.Context, key chat.Key, maxTokens int) ([]chat.Message, error) {
	msgs, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		return msgs, nil
	}

	total := 0
	window := make([]chat.Message, 0, len(msgs))
	for _, msg := range msgs {
		cost := s.counter.Count(msg.Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		window = append(window, msg)
	}
	return window, nil
}

// Record persists both sides of an exchange as one unit and invalidates the
// cached transcript.
func (s *Service) Record(ctx context.Context, key chat.Key, userContent, assistantContent string) error {
	userMsg, err := chat.NewUserMessage(key, userContent)
	if err != nil {
		return err
	}
	assistantMsg, err := chat.NewAssistantMessage(key, assistantContent)
	if err != nil {
		return err
	}

	if err := s.store.AppendMessages(ctx, []chat.Message{userMsg, assistantMsg}); err != nil {
		return fmt.Errorf("append messages: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, key)
	}

	s.log.WithField("user_id", key.UserID).
		WithField("session_id", key.SessionID).
		Debug("exchange recorded")
	return nil
}

// Clear deletes the transcript for key.
func (s *Service) Clear(ctx context.Context, key chat.Key) error {
	if err := s.store.ClearHistory(ctx, key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, key)
	}
	return nil
}

// Count returns the number of stored messages for key.
func (s *Service) Count(ctx context.Context, key chat.Key) (int, error) {
	return s.store.CountMessages(ctx, key)
}
