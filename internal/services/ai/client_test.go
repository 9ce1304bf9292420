package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lingocast/internal/testsupport"
)

func newTestClient(t *testing.T, fp *testsupport.FakeProvider, opts ...Option) *Client {
	t.Helper()
	return NewClient(Config{BaseURL: fp.BaseURL(), Credential: testsupport.FakeProviderKey}, opts...)
}

func TestCompleteSendsSingleUserMessage(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	fp.SetCompletion("  Hello listeners  ")
	client := newTestClient(t, fp)

	got, err := client.Complete(context.Background(), "Rewrite this transcript")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "Hello listeners" {
		t.Fatalf("unexpected content %q", got)
	}
	chats := fp.Chats()
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat call, got %d", len(chats))
	}
	if chats[0].Model != "gpt-4o" {
		t.Fatalf("expected default chat model, got %q", chats[0].Model)
	}
	if len(chats[0].Messages) != 1 || chats[0].Messages[0].Role != "user" || chats[0].Messages[0].Content != "Rewrite this transcript" {
		t.Fatalf("unexpected messages %+v", chats[0].Messages)
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	client := newTestClient(t, fp)

	audio, err := client.Synthesize(context.Background(), SpeechRequest{Voice: VoiceOnyx, Input: "Welcome"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(audio) != len(fp.Audio()) {
		t.Fatalf("expected %d audio bytes, got %d", len(fp.Audio()), len(audio))
	}
	speeches := fp.Speeches()
	if len(speeches) != 1 || speeches[0].Model != "tts-1-hd" || speeches[0].Voice != "onyx" || speeches[0].Input != "Welcome" {
		t.Fatalf("unexpected speech calls %+v", speeches)
	}
}

func TestSynthesizeRejectsUnknownVoice(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	client := newTestClient(t, fp)

	if _, err := client.Synthesize(context.Background(), SpeechRequest{Voice: "alloy", Input: "hi"}); err == nil {
		t.Fatal("expected unsupported voice error")
	}
	if len(fp.Speeches()) != 0 {
		t.Fatal("expected no provider call for rejected voice")
	}
}

func TestMissingCredential(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1/v1"})
	if _, err := client.Complete(context.Background(), "hi"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), SpeechRequest{Voice: VoiceNova, Input: "hi"}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestProviderErrorIsStatusError(t *testing.T) {
	fp := testsupport.NewFakeProvider(t)
	fp.FailWith(http.StatusServiceUnavailable)
	client := newTestClient(t, fp)

	_, err := client.Complete(context.Background(), "hi")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Message != "provider unavailable" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if len(fp.Chats()) != 0 {
		t.Fatal("failed calls should not be recorded as chats")
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Credential: "k"})
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestConfiguredRetryHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{BaseURL: server.URL, Credential: "k", RetryAttempts: 3},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	got, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected content %q", got)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected one 2s sleep, got %v", slept)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Credential: "k", RetryAttempts: 3}, WithSleeper(func(time.Duration) {}))
	_, err := client.Complete(context.Background(), "hi")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "bad model" {
		t.Fatalf("expected bad model status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retry on 400, got %d calls", calls.Load())
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	cases := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 4: 5 * time.Second}
	for attempt, want := range cases {
		if got := client.backoffDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected parse result %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected invalid Retry-After to be rejected")
	}
}

func TestCompleteReturnsContentVerbatim(t *testing.T) {
	const script = "\n**Title:** \"Money Talks\"\n\nHola a todos.  \n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(NewChatResponse(script)); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Credential: "k"})
	got, err := client.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != script {
		t.Fatalf("content was altered\n got %q\nwant %q", got, script)
	}
}

func TestFirstNonEmptySkipsBlankValues(t *testing.T) {
	if got := firstNonEmpty("  \n", "", " keep me "); got != " keep me " {
		t.Fatalf("unexpected value %q", got)
	}
	if got := firstNonEmpty(" ", "\t"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
