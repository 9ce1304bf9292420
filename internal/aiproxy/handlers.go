package aiproxy

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lingocast/internal/logging"
	"lingocast/internal/services/ai"
)

type speechBody struct {
	Model string   `json:"model" binding:"required"`
	Voice ai.Voice `json:"voice" binding:"required"`
	Input string   `json:"input" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleChat(c *gin.Context) {
	var body ai.ChatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Model != s.provider.ChatModel() {
		respondMessage(c, http.StatusBadRequest, "model "+quote(body.Model)+" is not served by this proxy")
		return
	}
	if len(body.Messages) == 0 {
		respondMessage(c, http.StatusBadRequest, "messages required")
		return
	}
	content, err := s.provider.CompleteMessages(c.Request.Context(), body.Messages)
	if err != nil {
		s.respondUpstream(c, "chat completion", err)
		return
	}
	c.JSON(http.StatusOK, ai.NewChatResponse(content))
}

func (s *Server) handleSpeech(c *gin.Context) {
	var body speechBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Model != s.provider.SpeechModel() {
		respondMessage(c, http.StatusBadRequest, "model "+quote(body.Model)+" is not served by this proxy")
		return
	}
	if !body.Voice.Valid() {
		respondMessage(c, http.StatusBadRequest, "voice must be nova or onyx")
		return
	}
	audio, err := s.provider.Synthesize(c.Request.Context(), ai.SpeechRequest{Voice: body.Voice, Input: body.Input})
	if err != nil {
		s.respondUpstream(c, "speech synthesis", err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// respondUpstream passes provider status codes through and maps everything
// else to 502.
func (s *Server) respondUpstream(c *gin.Context, op string, err error) {
	status := http.StatusBadGateway
	message := "upstream provider error"
	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.StatusCode
		if statusErr.Message != "" {
			message = statusErr.Message
		}
	}
	logging.WarnWithContext(s.logger, "upstream request failed", "proxy_upstream_failure", "client request failed",
		logging.String("operation", op),
		logging.Int("status", status),
		logging.Error(err),
	)
	c.JSON(status, ai.ChatResponse{Error: &struct {
		Message string `json:"message"`
	}{Message: message}})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"message": message}})
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `'`) + `"`
}
