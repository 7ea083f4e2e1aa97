// Package llm implements a chat-completions client for OpenAI-compatible
// providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/launchdarkly/eventsource"
	"github.com/tidwall/gjson"

	"github.com/fklc-labs/chatbot-service/internal/logging"
)

const (
	defaultBaseURL = "https://api.openai.com"
	completionPath = "/chat/completions"
	doneSentinel   = "[DONE]"
)

// Config configures the client.
type Config struct {
	// APIKey authenticates against the provider. Falls back to the
	// OPENAI_API_KEY environment variable when empty.
	APIKey string
	// BaseURL points at an OpenAI-compatible server. The /v1 prefix is
	// appended when missing.
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
	// MaxRetries bounds retry attempts on 429 and 5xx responses.
	MaxRetries int
	Log        *logging.Logger
}

// Client calls a chat-completions endpoint.
type Client struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	maxRetries  int
	log         *logging.Logger
}

// Completion is the result of a chat-completion call.
type Completion struct {
	Content          string `json:"content"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// NewClient constructs a chat-completions client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required: set it via config or the OPENAI_API_KEY environment variable")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewDefault("llm")
	}

	return &Client{
		apiKey:      apiKey,
		endpoint:    base + completionPath,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      client,
		maxRetries:  maxRetries,
		log:         log,
	}, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Complete sends the messages and returns the first choice.
func (c *Client) Complete(ctx context.Context, msgs []Message) (Completion, error) {
	resp, err := c.send(ctx, msgs, false)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Completion{}, fmt.Errorf("read completion response: %w", err)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return Completion{}, fmt.Errorf("completion response has no choices")
	}

	return Completion{
		Content:          content.String(),
		Model:            gjson.GetBytes(body, "model").String(),
		PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
		CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
	}, nil
}

// Stream sends the messages with streaming enabled and invokes fn for each
// content delta. It returns the assembled completion once the provider
// signals the end of the stream.
func (c *Client) Stream(ctx context.Context, msgs []Message, fn func(delta string) error) (Completion, error) {
	resp, err := c.send(ctx, msgs, true)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	var (
		builder strings.Builder
		model   string
	)

	decoder := eventsource.NewDecoder(resp.Body)
	for {
		event, err := decoder.Decode()
		if err != nil {
			if err == io.EOF {
				break
			}
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			default:
			}
			return Completion{}, fmt.Errorf("decode stream event: %w", err)
		}

		data := strings.TrimSpace(event.Data())
		if data == "" {
			continue
		}
		if data == doneSentinel {
			break
		}

		if model == "" {
			model = gjson.Get(data, "model").String()
		}
		delta := gjson.Get(data, "choices.0.delta.content")
		if !delta.Exists() || delta.String() == "" {
			continue
		}
		builder.WriteString(delta.String())
		if fn != nil {
			if err := fn(delta.String()); err != nil {
				return Completion{}, err
			}
		}
	}

	return Completion{Content: builder.String(), Model: model}, nil
}

// send posts the completion request, retrying on 429 and 5xx.
func (c *Client) send(ctx context.Context, msgs []Message, stream bool) (*http.Response, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build completion request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if stream {
			req.Header.Set("Accept", "text/event-stream")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("completion request: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		lastErr = providerError(resp)
		resp.Body.Close()

		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
		c.log.WithError(lastErr).WithField("attempt", attempt+1).Warn("retrying completion request")
	}

	return nil, lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// providerError extracts the provider's error message from a failed response.
func providerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return fmt.Errorf("provider status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("provider status %d", resp.StatusCode)
}
