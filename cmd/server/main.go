// Package main runs the chatbot HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/fklc-labs/chatbot-service/internal/app"
	"github.com/fklc-labs/chatbot-service/internal/app/httpapi"
	"github.com/fklc-labs/chatbot-service/internal/app/metrics"
	mysqlstore "github.com/fklc-labs/chatbot-service/internal/app/storage/mysql"
	"github.com/fklc-labs/chatbot-service/internal/config"
	"github.com/fklc-labs/chatbot-service/internal/llm"
	"github.com/fklc-labs/chatbot-service/internal/logging"
	"github.com/fklc-labs/chatbot-service/internal/middleware"
)

const dbConnectTimeout = 60 * time.Second

var (
	portFlag   = flag.Int("port", 0, "listen port (overrides PORT)")
	configFlag = flag.String("config", "", "path to a YAML config file (overrides CONFIG_FILE)")
)

func main() {
	flag.Parse()

	log := logging.New("server")

	if *configFlag != "" {
		os.Setenv("CONFIG_FILE", *configFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	applyFlags(cfg)

	stores := app.Stores{}
	var pinger httpapi.Pinger

	dsn := databaseDSN(cfg, log)
	if dsn != "" {
		db, err := openDatabase(dsn)
		if err != nil {
			log.WithError(err).Fatal("connect to database")
		}
		defer db.Close()

		if cfg.SkipMigrations {
			log.Warn("SKIP_MIGRATIONS set; schema not verified")
		} else if err := mysqlstore.Migrate(db); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}

		store := mysqlstore.New(db)
		stores.History = store
		pinger = store
	} else if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; transcripts held in memory only")
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Log:         log,
	})
	if err != nil {
		log.WithError(err).Fatal("configure completion client")
	}

	application, err := app.New(cfg, stores, completer, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	router := httpapi.NewHandler(application.Chat, pinger, cfg.CORSOrigins, log)
	router.Use(middleware.LoggingMiddleware(log))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, log)
	if err := application.Attach(limiter); err != nil {
		log.WithError(err).Fatal("attach rate limiter")
	}

	var handler http.Handler = metrics.InstrumentHandler(router)
	handler = limiter.Handler(handler)
	if cfg.SecretKey != "" {
		auth := middleware.NewAuthMiddleware([]byte(cfg.SecretKey), log, []string{"/healthz", "/metrics", "/status"})
		handler = auth.Handler(handler)
	} else if cfg.Env == config.EnvProd {
		log.Warn("SECRET_KEY not set; API authentication disabled")
	}
	handler = middleware.NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start services")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).WithField("env", cfg.Env).Info("chatbot service listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}
}

// applyFlags overrides loaded configuration with command-line flags.
func applyFlags(cfg *config.Config) {
	if *portFlag > 0 {
		cfg.Port = *portFlag
	}
}

// databaseDSN resolves DATABASE_URL into a driver DSN. A malformed URL is
// fatal in prod (Validate enforces it there too); elsewhere the service runs
// on the in-memory store instead.
func databaseDSN(cfg *config.Config, log *logging.Logger) string {
	dsn, err := cfg.DSN()
	if err != nil {
		if cfg.Env == config.EnvProd {
			log.WithError(err).Fatal("parse DATABASE_URL")
		}
		log.WithError(err).Warn("DATABASE_URL invalid; transcripts held in memory only")
		return ""
	}
	return dsn
}

// openDatabase connects with retry so the service survives starting before
// the database container is ready.
func openDatabase(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	deadline := time.Now().Add(dbConnectTimeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("database unreachable after %s: %w", dbConnectTimeout, err)
		}
		time.Sleep(2 * time.Second)
	}
}
