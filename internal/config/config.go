// Package config loads service configuration from the environment, with
// optional overrides from a YAML file and a local .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment profiles.
const (
	EnvDev  = "dev"
	EnvTest = "test"
	EnvProd = "prod"
)

// Config holds all runtime settings for the chatbot service.
type Config struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`

	// DatabaseURL is the raw connection URL as injected by the deployment
	// (SQLAlchemy-style schemes are accepted). Empty selects the in-memory
	// store outside prod.
	DatabaseURL string `yaml:"database_url"`

	OpenAIAPIKey string  `yaml:"openai_api_key"`
	Model        string  `yaml:"model"`
	LLMBaseURL   string  `yaml:"llm_base_url"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`

	HistoryMaxTokens int `yaml:"history_max_tokens"`
	RetentionDays    int `yaml:"retention_days"`

	SecretKey   string   `yaml:"secret_key"`
	CORSOrigins []string `yaml:"cors_origins"`
	RedisAddr   string   `yaml:"redis_addr"`

	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`

	SkipMigrations bool `yaml:"skip_migrations"`
}

// Default returns the baseline configuration before any overrides.
func Default() *Config {
	return &Config{
		Env:                EnvDev,
		Port:               8000,
		Model:              "gpt-4o-mini",
		LLMBaseURL:         "https://api.openai.com",
		Temperature:        0.7,
		MaxTokens:          8192,
		SystemPrompt:       "You are a helpful assistant.",
		HistoryMaxTokens:   1000,
		RetentionDays:      0,
		CORSOrigins:        []string{"*"},
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if set and readable), then environment variables. A .env file
// in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "APP_ENV")
	setInt(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Model, "OPENAI_MODEL")
	setString(&c.LLMBaseURL, "LLM_BASE_URL")
	setFloat(&c.Temperature, "LLM_TEMPERATURE")
	setInt(&c.MaxTokens, "LLM_MAX_TOKENS")
	setString(&c.SystemPrompt, "SYSTEM_PROMPT")
	setInt(&c.HistoryMaxTokens, "HISTORY_MAX_TOKENS")
	setInt(&c.RetentionDays, "RETENTION_DAYS")
	setString(&c.SecretKey, "SECRET_KEY")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setInt(&c.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND")
	setInt(&c.RateLimitBurst, "RATE_LIMIT_BURST")
	setBool(&c.SkipMigrations, "SKIP_MIGRATIONS")

	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		var origins []string
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		if len(origins) > 0 {
			c.CORSOrigins = origins
		}
	}
}

// Validate checks profile-dependent requirements.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvTest, EnvProd:
	default:
		return fmt.Errorf("unknown environment %q", c.Env)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Env == EnvProd {
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required in prod")
		}
		if _, err := ParseDatabaseURL(c.DatabaseURL); err != nil {
			return err
		}
	}
	return nil
}

// DSN returns the go-sql-driver DSN for DatabaseURL, or empty when no
// database is configured.
func (c *Config) DSN() (string, error) {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return "", nil
	}
	return ParseDatabaseURL(c.DatabaseURL)
}

// ParseDatabaseURL normalizes a MySQL connection URL into a go-sql-driver
// DSN. SQLAlchemy-style schemes (mysql+pymysql://, mysql+aiomysql://) are
// accepted for drop-in compatibility with the deployment's DATABASE_URL.
// A value that already looks like a DSN (contains "@tcp(") passes through.
func ParseDatabaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("database URL is empty")
	}
	if strings.Contains(raw, "@tcp(") {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "mysql" && !strings.HasPrefix(scheme, "mysql+") {
		return "", fmt.Errorf("unsupported database scheme %q", parsed.Scheme)
	}
	if parsed.User == nil || parsed.User.Username() == "" {
		return "", fmt.Errorf("database URL is missing credentials")
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("database URL is missing a host")
	}
	port := parsed.Port()
	if port == "" {
		port = "3306"
	}

	schema := strings.Trim(parsed.Path, "/")
	if schema == "" {
		return "", fmt.Errorf("database URL is missing a schema name")
	}

	user := parsed.User.Username()
	password, _ := parsed.User.Password()

	auth := user
	if password != "" {
		auth += ":" + password
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC", auth, host, port, schema), nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "t", "yes":
		*dst = true
	case "false", "0", "f", "no":
		*dst = false
	}
}
