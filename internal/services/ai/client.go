package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lingocast/internal/config"
	"lingocast/internal/logging"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultChatModel      = "gpt-4o"
	defaultSpeechModel    = "tts-1-hd"
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 1
	maxSpeechBytes        = 64 << 20
)

// ErrMissingCredential is returned when no API key or proxy token is configured.
var ErrMissingCredential = errors.New("ai: api key or proxy token required")

// Config captures the runtime settings required to talk to the provider or
// to a lingocast AI proxy. Both speak the same wire format.
type Config struct {
	BaseURL        string
	Credential     string
	ChatModel      string
	SpeechModel    string
	TimeoutSeconds int
	RetryAttempts  int
}

// Client wraps the chat-completion and speech-synthesis endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the attempt count (defaults to 1, no retry).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client. Without TimeoutSeconds the HTTP client has
// no timeout and calls are bounded only by ctx.
func NewClient(cfg Config, opts ...Option) *Client {
	var timeout time.Duration
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Credential:     strings.TrimSpace(cfg.Credential),
			ChatModel:      strings.TrimSpace(cfg.ChatModel),
			SpeechModel:    strings.TrimSpace(cfg.SpeechModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	if cfg.RetryAttempts > 0 {
		client.retryMaxAttempts = cfg.RetryAttempts
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.ChatModel == "" {
		client.cfg.ChatModel = defaultChatModel
	}
	if client.cfg.SpeechModel == "" {
		client.cfg.SpeechModel = defaultSpeechModel
	}
	client.logger = logging.NewComponentLogger(client.logger, "ai")
	return client
}

// ChatModel returns the configured chat model.
func (c *Client) ChatModel() string { return c.cfg.ChatModel }

// SpeechModel returns the configured speech model.
func (c *Client) SpeechModel() string { return c.cfg.SpeechModel }

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Message    string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ai request: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ai request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, response_snippet=%s)", e.Op, e.FinishReason, e.Snippet)
}

// ChatMessage is one message of a chat completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completion request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Message      ChatMessage `json:"message"`
	Delta        ChatMessage `json:"delta"`
	Text         string      `json:"text,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatResponse is the subset of the chat-completion response lingocast reads.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatResponse wraps content in a single-choice response.
func NewChatResponse(content string) ChatResponse {
	return ChatResponse{Choices: []ChatChoice{{
		Message:      ChatMessage{Role: "assistant", Content: content},
		FinishReason: "stop",
	}}}
}

// Complete sends prompt as a single user-role message and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("ai complete: prompt required")
	}
	return c.CompleteMessages(ctx, []ChatMessage{{Role: "user", Content: prompt}})
}

// CompleteMessages sends an explicit message list with the configured model.
func (c *Client) CompleteMessages(ctx context.Context, messages []ChatMessage) (string, error) {
	if c.cfg.Credential == "" {
		return "", ErrMissingCredential
	}
	if len(messages) == 0 {
		return "", errors.New("ai complete: messages required")
	}
	payload := ChatRequest{Model: c.cfg.ChatModel, Messages: messages}
	return c.completionContentWithRetry(ctx, payload, "ai complete")
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload ChatRequest, op string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		var completion ChatResponse
		body, err := c.postJSON(ctx, "/chat/completions", payload)
		if err == nil {
			if decodeErr := json.Unmarshal(body, &completion); decodeErr != nil {
				err = fmt.Errorf("%s: decode response: %w", op, decodeErr)
			} else if completion.Error != nil {
				err = fmt.Errorf("%s: api error: %s", op, strings.TrimSpace(completion.Error.Message))
			} else if content, finish := extractCompletionPayload(completion); content != "" {
				return content, nil
			} else if len(completion.Choices) == 0 {
				err = fmt.Errorf("%s: empty choices", op)
			} else {
				err = &emptyContentError{Op: op, FinishReason: finish, Snippet: summarizePayloadSnippet(string(body))}
			}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		c.logger.Debug("retrying ai request", logging.Int("attempt", attempt), logging.Duration("delay", delay), logging.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func extractCompletionPayload(completion ChatResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// postJSON performs one request and returns the body of a 2xx response.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("ai request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ai request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("ai request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
	if err != nil {
		return nil, fmt.Errorf("ai request: read body: %w", err)
	}
	c.logger.Debug("ai request",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(body)),
		logging.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    providerMessage(body),
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
		return strings.TrimSpace(nested.Message)
	}
	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return ""
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// ConfigFromSettings converts the resolved [ai] configuration section.
func ConfigFromSettings(s config.AIConfig) Config {
	return Config{
		BaseURL:        s.BaseURL,
		Credential:     s.Credential,
		ChatModel:      s.ChatModel,
		SpeechModel:    s.SpeechModel,
		TimeoutSeconds: s.TimeoutSeconds,
		RetryAttempts:  s.RetryAttempts,
	}
}
