package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingocast/internal/logging"
	"lingocast/internal/services"
)

const (
	// DefaultBaseURL is the backend location used when none is configured.
	DefaultBaseURL = "http://localhost:4321"
	// DefaultTimeout bounds every backend call.
	DefaultTimeout = 300 * time.Second

	// LoginRoute is the view a forced logout navigates to.
	LoginRoute = "/login"

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

// SessionGuard is consulted when the backend rejects a request with 401.
type SessionGuard interface {
	// CurrentRoute returns the active view.
	CurrentRoute() string
	// ForceLogout clears the persisted session and navigates to the login view.
	ForceLogout(ctx context.Context) error
}

// Client sends requests to the podcast backend. It attaches the bearer token,
// tags each request with a correlation id and applies the 401 policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
	guard      SessionGuard
	logger     *slog.Logger
	newID      func() string

	mu    sync.Mutex
	armed bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The caller owns its timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource supplies the bearer token read before every request.
func WithTokenSource(token func() string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithSessionGuard installs the forced-logout hook.
func WithSessionGuard(guard SessionGuard) Option {
	return func(c *Client) {
		c.guard = guard
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestIDs overrides the correlation id generator (useful for tests).
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.newID = next
		}
	}
}

// New constructs a gateway client for baseURL with one fixed timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		newID:      uuid.NewString,
		armed:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "gateway")
	return c
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Rearm re-enables the forced logout after a successful login.
func (c *Client) Rearm() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// PatchJSON issues a PATCH with a JSON body.
func (c *Client) PatchJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

// FilePart is the file portion of a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// PostMultipart issues a POST with a multipart/form-data body holding the
// file part followed by the plain fields.
func (c *Client) PostMultipart(ctx context.Context, path string, file FilePart, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return fmt.Errorf("gateway: create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return fmt.Errorf("gateway: copy form file: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("gateway: write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("gateway: close multipart body: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, path, &buf, writer.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp, http.MethodPost, path, out)
}

// Download opens path for streaming. The caller closes the returned reader.
// The size is -1 when the server does not report it.
func (c *Client) Download(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	resp, err := c.send(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(resp, method, path, out)
}

// send performs one request. Non-2xx responses are converted into *Error and
// their bodies closed.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path = "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: new request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != nil {
		if token := strings.TrimSpace(c.token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger := logging.WithContext(services.WithRequestID(ctx, requestID), c.logger)
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("backend request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.Error(err),
		)
		return nil, networkError(method, path, err)
	}
	logger.Debug("backend request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		gwErr := statusError(method, path, resp.StatusCode, payload)
		if gwErr.Kind == KindUnauthorized {
			c.handleUnauthorized(ctx, logger, path)
		}
		return nil, gwErr
	}
	return resp, nil
}

// handleUnauthorized applies the blanket 401 policy. Requests to auth
// endpoints and requests made from the login view never force a logout, and
// concurrent 401s force it only once until Rearm.
func (c *Client) handleUnauthorized(ctx context.Context, logger *slog.Logger, path string) {
	if c.guard == nil || strings.Contains(path, "/auth") {
		return
	}
	if strings.Contains(c.guard.CurrentRoute(), LoginRoute) {
		return
	}
	c.mu.Lock()
	fire := c.armed
	c.armed = false
	c.mu.Unlock()
	if !fire {
		return
	}
	logging.WarnWithContext(logger, "session rejected by backend; logging out",
		"session_expired", "stored credentials cleared, login required",
		logging.String("path", path),
	)
	if err := c.guard.ForceLogout(ctx); err != nil {
		logger.Error("forced logout failed", logging.Error(err))
	}
}

func decodeBody(resp *http.Response, method, path string, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(method, path, err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], payload...)
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &Error{
			Kind:    KindBackend,
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: "Unexpected response from the server",
			Err:     fmt.Errorf("decode %s %s: %w", method, path, err),
		}
	}
	return nil
}
