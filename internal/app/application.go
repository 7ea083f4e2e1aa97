package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	domain "github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
	chatsvc "github.com/fklc-labs/chatbot-service/internal/app/services/chat"
	memorysvc "github.com/fklc-labs/chatbot-service/internal/app/services/memory"
	"github.com/fklc-labs/chatbot-service/internal/app/services/retention"
	"github.com/fklc-labs/chatbot-service/internal/app/storage"
	"github.com/fklc-labs/chatbot-service/internal/app/system"
	"github.com/fklc-labs/chatbot-service/internal/config"
	"github.com/fklc-labs/chatbot-service/internal/logging"
	"github.com/fklc-labs/chatbot-service/internal/prompt"
	"github.com/fklc-labs/chatbot-service/internal/tokens"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	History storage.HistoryStore
}

// Application ties the chat services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Memory *memorysvc.Service
	Chat   *chatsvc.Service
}

// New builds a fully initialised application with the provided stores and
// completion client.
func New(cfg *config.Config, stores Stores, completer chatsvc.Completer, log *logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.NewDefault("app")
	}
	if stores.History == nil {
		stores.History = storage.NewMemory()
	}

	counter := tokens.NewCounter(tokens.DefaultEncoding)
	memoryService := memorysvc.New(stores.History, counter, log)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		memoryService.WithCache(memorysvc.NewRedisCache(client))
		log.WithField("addr", cfg.RedisAddr).Info("transcript cache on redis")
	} else {
		memoryService.WithCache(memorysvc.NewLocalCache())
	}

	template, err := prompt.New(prompt.Turn{Role: domain.RoleSystem, Text: cfg.SystemPrompt})
	if err != nil {
		return nil, fmt.Errorf("build prompt template: %w", err)
	}

	chatService := chatsvc.New(memoryService, completer, template, cfg.HistoryMaxTokens, log)

	manager := system.NewManager()
	purger := retention.NewPurger(stores.History, cfg.RetentionDays, log)
	if err := manager.Register(purger); err != nil {
		return nil, fmt.Errorf("register %s: %w", purger.Name(), err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Memory:  memoryService,
		Chat:    chatService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
