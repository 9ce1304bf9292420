package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeProviderKey is the API key FakeProvider accepts.
const FakeProviderKey = "sk-test"

// ChatCall captures one chat-completion request.
type ChatCall struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// SpeechCall captures one speech-synthesis request.
type SpeechCall struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// FakeProvider imitates the chat-completion and speech endpoints of an
// OpenAI-compatible provider under /v1.
type FakeProvider struct {
	Server *httptest.Server

	mu         sync.Mutex
	completion string
	audio      []byte
	failStatus int
	chats      []ChatCall
	speeches   []SpeechCall
}

// NewFakeProvider starts a fake provider and registers cleanup.
func NewFakeProvider(t testing.TB) *FakeProvider {
	t.Helper()

	fp := &FakeProvider{
		completion: "**Title:** \"Money Talks\"\nWelcome to the show.",
		audio:      AudioBytes(2048),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", fp.handleChat)
	mux.HandleFunc("POST /v1/audio/speech", fp.handleSpeech)
	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Server.Close)
	return fp
}

// BaseURL returns the URL to configure as the AI base URL.
func (fp *FakeProvider) BaseURL() string { return fp.Server.URL + "/v1" }

// SetCompletion changes the text returned by chat completions.
func (fp *FakeProvider) SetCompletion(text string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.completion = text
}

// FailWith makes every call answer with status. Zero restores success.
func (fp *FakeProvider) FailWith(status int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.failStatus = status
}

// Audio returns the bytes served by the speech endpoint.
func (fp *FakeProvider) Audio() []byte {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]byte(nil), fp.audio...)
}

// Chats returns the recorded chat calls.
func (fp *FakeProvider) Chats() []ChatCall {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]ChatCall(nil), fp.chats...)
}

// Speeches returns the recorded speech calls.
func (fp *FakeProvider) Speeches() []SpeechCall {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]SpeechCall(nil), fp.speeches...)
}

func (fp *FakeProvider) checkRequest(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+FakeProviderKey {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "Incorrect API key provided"}})
		return false
	}
	fp.mu.Lock()
	status := fp.failStatus
	fp.mu.Unlock()
	if status != 0 {
		writeFakeJSON(w, status, map[string]any{"error": map[string]any{"message": "provider unavailable"}})
		return false
	}
	return true
}

func (fp *FakeProvider) handleChat(w http.ResponseWriter, r *http.Request) {
	if !fp.checkRequest(w, r) {
		return
	}
	var call ChatCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "invalid body"}})
		return
	}
	fp.mu.Lock()
	fp.chats = append(fp.chats, call)
	text := fp.completion
	fp.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": text}}},
	})
}

func (fp *FakeProvider) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if !fp.checkRequest(w, r) {
		return
	}
	var call SpeechCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "invalid body"}})
		return
	}
	fp.mu.Lock()
	fp.speeches = append(fp.speeches, call)
	audio := append([]byte(nil), fp.audio...)
	fp.mu.Unlock()
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}
