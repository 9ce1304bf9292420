package aiproxy_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lingocast/internal/aiproxy"
	"lingocast/internal/services/ai"
	"lingocast/internal/testsupport"
)

const proxyToken = "proxy-secret"

func newProxy(t *testing.T) (*httptest.Server, *testsupport.FakeProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fp := testsupport.NewFakeProvider(t)
	upstream := ai.NewClient(ai.Config{BaseURL: fp.BaseURL(), Credential: testsupport.FakeProviderKey})
	srv, err := aiproxy.New("127.0.0.1:0", proxyToken, upstream, nil)
	if err != nil {
		t.Fatalf("aiproxy.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, fp
}

func TestProxyForwardsChatAndSpeech(t *testing.T) {
	ts, fp := newProxy(t)
	client := ai.NewClient(ai.Config{BaseURL: ts.URL + "/v1", Credential: proxyToken})
	ctx := context.Background()

	text, err := client.Complete(ctx, "write a podcast")
	if err != nil {
		t.Fatalf("Complete through proxy: %v", err)
	}
	if !strings.Contains(text, "Money Talks") {
		t.Fatalf("unexpected completion %q", text)
	}
	chats := fp.Chats()
	if len(chats) != 1 || chats[0].Model != "gpt-4o" || chats[0].Messages[0].Content != "write a podcast" {
		t.Fatalf("unexpected upstream chats %+v", chats)
	}

	audio, err := client.Synthesize(ctx, ai.SpeechRequest{Voice: ai.VoiceNova, Input: "hello"})
	if err != nil {
		t.Fatalf("Synthesize through proxy: %v", err)
	}
	if !bytes.Equal(audio, fp.Audio()) {
		t.Fatal("proxied audio differs from upstream audio")
	}
	if speeches := fp.Speeches(); len(speeches) != 1 || speeches[0].Voice != "nova" || speeches[0].Model != "tts-1-hd" {
		t.Fatalf("unexpected upstream speeches %+v", speeches)
	}
}

func TestProxyRejectsBadToken(t *testing.T) {
	ts, fp := newProxy(t)
	client := ai.NewClient(ai.Config{BaseURL: ts.URL + "/v1", Credential: "wrong"})

	_, err := client.Complete(context.Background(), "hi")
	var statusErr *ai.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if len(fp.Chats()) != 0 {
		t.Fatal("unauthorized request reached the provider")
	}
}

func TestProxyRejectsUnknownModelAndVoice(t *testing.T) {
	ts, fp := newProxy(t)

	post := func(path, body string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+proxyToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := post("/v1/chat/completions", `{"model":"gpt-4-turbo","messages":[{"role":"user","content":"x"}]}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown chat model, got %d", status)
	}
	if status := post("/v1/audio/speech", `{"model":"tts-1-hd","voice":"alloy","input":"x"}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown voice, got %d", status)
	}
	if status := post("/v1/audio/speech", `{"model":"tts-1","voice":"nova","input":"x"}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown speech model, got %d", status)
	}
	if len(fp.Chats()) != 0 || len(fp.Speeches()) != 0 {
		t.Fatal("rejected requests reached the provider")
	}
}

func TestProxyPassesUpstreamStatus(t *testing.T) {
	ts, fp := newProxy(t)
	fp.FailWith(http.StatusTooManyRequests)
	client := ai.NewClient(ai.Config{BaseURL: ts.URL + "/v1", Credential: proxyToken})

	_, err := client.Complete(context.Background(), "hi")
	var statusErr *ai.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Message != "provider unavailable" {
		t.Fatalf("expected relayed 429, got %v", err)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	ts, _ := newProxy(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(aiproxy.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestNewRequiresToken(t *testing.T) {
	upstream := ai.NewClient(ai.Config{Credential: "sk"})
	if _, err := aiproxy.New("127.0.0.1:0", " ", upstream, nil); !errors.Is(err, aiproxy.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
