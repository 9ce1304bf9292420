package aiproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lingocast/internal/logging"
	"lingocast/internal/services/ai"
)

// ErrMissingToken is returned when the proxy is started without a client token.
var ErrMissingToken = errors.New("proxy.token (or LINGOCAST_PROXY_TOKEN) is required to serve the AI proxy")

const maxRequestBytes = 1 << 20

// Provider is the upstream the proxy forwards to.
type Provider interface {
	CompleteMessages(ctx context.Context, messages []ai.ChatMessage) (string, error)
	Synthesize(ctx context.Context, req ai.SpeechRequest) ([]byte, error)
	ChatModel() string
	SpeechModel() string
}

// Server relays chat-completion and speech requests to the provider with the
// server-held key.
type Server struct {
	bind     string
	token    string
	provider Provider
	logger   *slog.Logger
	engine   *gin.Engine

	listener net.Listener
	server   *http.Server
}

// New builds the proxy. The token is the bearer clients must present.
func New(bind, token string, provider Provider, logger *slog.Logger) (*Server, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if provider == nil {
		return nil, errors.New("aiproxy: provider required")
	}
	s := &Server{
		bind:     strings.TrimSpace(bind),
		token:    token,
		provider: provider,
		logger:   logging.NewComponentLogger(logger, "aiproxy"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))
	engine.Use(maxBodySize(maxRequestBytes))
	engine.GET("/healthz", s.handleHealth)
	v1 := engine.Group("/v1", bearerAuth(token))
	{
		v1.POST("/chat/completions", s.handleChat)
		v1.POST("/audio/speech", s.handleSpeech)
	}
	s.engine = engine

	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listening address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Start listens on the bind address and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("proxy server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("ai proxy listening",
		logging.String("address", listener.Addr().String()),
		logging.String("chat_model", s.provider.ChatModel()),
		logging.String("speech_model", s.provider.SpeechModel()),
	)
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
