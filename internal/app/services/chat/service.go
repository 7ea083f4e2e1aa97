// Package chat implements the conversation pipeline: history window, prompt
// rendering, model completion and transcript persistence.
package chat

import (
	"context"
	"strings"
	"time"

	domain "github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	"github.com/fklc-labs/chatbot-service/internal/app/metrics"
	memorysvc "github.com/fklc-labs/chatbot-service/internal/app/services/memory"
	serviceerrors "github.com/fklc-labs/chatbot-service/internal/errors"
	"github.com/fklc-labs/chatbot-service/internal/llm"
	"github.com/fklc-labs/chatbot-service/internal/logging"
	"github.com/fklc-labs/chatbot-service/internal/prompt"
)

// Completer generates chat completions.
type Completer interface {
	Complete(ctx context.Context, msgs []llm.Message) (llm.Completion, error)
	Stream(ctx context.Context, msgs []llm.Message, fn func(delta string) error) (llm.Completion, error)
}

// Request is one chat turn from a caller.
type Request struct {
	UserID    string            `json:"user_id"`
	OrgnID    string            `json:"orgn_id"`
	SessionID string            `json:"session_id"`
	Message   string            `json:"message"`
	Vars      map[string]string `json:"vars,omitempty"`
}

// Reply is the assistant's answer plus usage accounting.
type Reply struct {
	Content          string `json:"content"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Service runs the conversation pipeline.
type Service struct {
	memory        *memorysvc.Service
	completer     Completer
	template      *prompt.Template
	historyTokens int
	log           *logging.Logger
}

// New constructs a chat service. historyTokens bounds the history window; a
// non-positive value disables the bound.
func New(memory *memorysvc.Service, completer Completer, template *prompt.Template, historyTokens int, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("chat")
	}
	return &Service{
		memory:        memory,
		completer:     completer,
		template:      template,
		historyTokens: historyTokens,
		log:           log,
	}
}

// DefaultTemplate returns the assistant's baseline prompt.
func DefaultTemplate() *prompt.Template {
	t, _ := prompt.New(prompt.Turn{
		Role: domain.RoleSystem,
		Text: "You are a helpful assistant.",
	})
	return t
}

// Ask runs one chat turn and persists the exchange.
func (s *Service) Ask(ctx context.Context, req Request) (Reply, error) {
	key, msgs, err := s.buildMessages(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	start := time.Now()
	completion, err := s.completer.Complete(ctx, msgs)
	metrics.ObserveCompletion(err == nil, time.Since(start))
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("completion failed")
		return Reply{}, serviceerrors.UpstreamUnavailable("completion failed", err)
	}
	metrics.AddTokenUsage(completion.PromptTokens, completion.CompletionTokens)

	if err := s.memory.Record(ctx, key, req.Message, completion.Content); err != nil {
		s.log.WithContext(ctx).WithError(err).Error("record exchange")
		return Reply{}, serviceerrors.Internal("failed to persist exchange", err)
	}

	return replyFrom(completion), nil
}

// Stream runs one chat turn, invoking fn for every content delta. The
// exchange is persisted only after the stream finishes cleanly.
func (s *Service) Stream(ctx context.Context, req Request, fn func(delta string) error) (Reply, error) {
	key, msgs, err := s.buildMessages(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	start := time.Now()
	completion, err := s.completer.Stream(ctx, msgs, fn)
	metrics.ObserveCompletion(err == nil, time.Since(start))
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("streamed completion failed")
		return Reply{}, serviceerrors.UpstreamUnavailable("completion failed", err)
	}

	if err := s.memory.Record(ctx, key, req.Message, completion.Content); err != nil {
		s.log.WithContext(ctx).WithError(err).Error("record exchange")
		return Reply{}, serviceerrors.Internal("failed to persist exchange", err)
	}

	return replyFrom(completion), nil
}

// History returns the stored transcript for the request's session.
func (s *Service) History(ctx context.Context, userID, orgnID, sessionID string) ([]domain.Message, error) {
	key, err := domain.NewKey(userID, orgnID, sessionID)
	if err != nil {
		return nil, serviceerrors.BadRequest(err.Error())
	}
	return s.memory.History(ctx, key)
}

// ClearHistory deletes the stored transcript for the session.
func (s *Service) ClearHistory(ctx context.Context, userID, orgnID, sessionID string) error {
	key, err := domain.NewKey(userID, orgnID, sessionID)
	if err != nil {
		return serviceerrors.BadRequest(err.Error())
	}
	return s.memory.Clear(ctx, key)
}

func (s *Service) buildMessages(ctx context.Context, req Request) (domain.Key, []llm.Message, error) {
	key, err := domain.NewKey(req.UserID, req.OrgnID, req.SessionID)
	if err != nil {
		return domain.Key{}, nil, serviceerrors.BadRequest(err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.Key{}, nil, serviceerrors.BadRequest("message is required")
	}

	window, err := s.memory.Window(ctx, key, s.historyTokens)
	if err != nil {
		return domain.Key{}, nil, serviceerrors.Internal("failed to load history", err)
	}

	msgs := s.template.Render(window, req.Vars)
	msgs = append(msgs, llm.Message{Role: string(domain.RoleUser), Content: req.Message})
	return key, msgs, nil
}

func replyFrom(completion llm.Completion) Reply {
	return Reply{
		Content:          completion.Content,
		Model:            completion.Model,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
	}
}
