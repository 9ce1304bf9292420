package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Voice is a speech-synthesis voice preset.
type Voice string

const (
	VoiceNova Voice = "nova"
	VoiceOnyx Voice = "onyx"
)

// Valid reports whether v is one of the supported presets.
func (v Voice) Valid() bool {
	return v == VoiceNova || v == VoiceOnyx
}

// SpeechRequest is the input for Synthesize.
type SpeechRequest struct {
	Voice Voice
	Input string
}

// SpeechPayload is the speech endpoint request body.
type SpeechPayload struct {
	Model string `json:"model"`
	Voice Voice  `json:"voice"`
	Input string `json:"input"`
}

// Synthesize converts text to audio with the configured speech model and
// returns the encoded audio bytes.
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if c.cfg.Credential == "" {
		return nil, ErrMissingCredential
	}
	if !req.Voice.Valid() {
		return nil, fmt.Errorf("ai synthesize: unsupported voice %q", req.Voice)
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("ai synthesize: input required")
	}
	payload := SpeechPayload{Model: c.cfg.SpeechModel, Voice: req.Voice, Input: req.Input}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		audio, err := c.postJSON(ctx, "/audio/speech", payload)
		if err == nil {
			if len(audio) == 0 {
				err = errors.New("ai synthesize: empty audio")
			} else {
				return audio, nil
			}
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("ai synthesize: failed after %d attempts: %w", attempts, lastErr)
}
