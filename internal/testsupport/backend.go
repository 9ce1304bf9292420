package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Fixture credentials accepted by FakeBackend.
const (
	FakeEmail    = "ada@example.com"
	FakePassword = "secret"
	FakeToken    = "token-123"
)

// Video mirrors the backend video record.
type Video struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	YouTubeURL string `json:"youtube_url"`
}

// Podcast mirrors the backend podcast record.
type Podcast struct {
	ID              string `json:"id"`
	AIGeneratedText string `json:"ai_generated_text,omitempty"`
	Video           Video  `json:"video"`
}

// AudioFile mirrors the backend audio-file record.
type AudioFile struct {
	ID        string `json:"id"`
	PodcastID string `json:"podcast_id"`
	FilePath  string `json:"file_path"`
}

// Exercise mirrors the backend quiz question record.
type Exercise struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	AnswerChoices []string `json:"answer_choices"`
	CorrectAnswer string   `json:"correct_answer"`
	UserAnswer    string   `json:"user_answer,omitempty"`
	Status        string   `json:"status,omitempty"`
	Podcast       *Podcast `json:"podcast,omitempty"`
}

// RecordedRequest captures one request the fake received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// RecordedUpload captures one multipart audio upload.
type RecordedUpload struct {
	PodcastID string
	Filename  string
	Data      []byte
}

// FakeBackend is an in-memory stand-in for the podcast REST backend.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	requireAuth bool
	podcasts    []Podcast
	audioFiles  []AudioFile
	exercises   map[string][]*Exercise
	files       map[string][]byte
	related     map[string]any
	failures    map[string]int
	requests    []RecordedRequest
	uploads     []RecordedUpload
}

// NewFakeBackend starts a fake backend and registers cleanup. Requests other
// than POST /auth must carry FakeToken.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		requireAuth: true,
		exercises:   make(map[string][]*Exercise),
		files:       make(map[string][]byte),
		failures:    make(map[string]int),
		related: map[string]any{
			"podcast": map[string]any{"id": "p1"},
			"video":   map[string]any{"id": "v1", "title": "Economy 101"},
			"transcripts": []map[string]any{
				{"text": "hello"},
				{"text": "world"},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", fb.handleLogin)
	mux.HandleFunc("POST /auth/logout", fb.authed(func(w http.ResponseWriter, r *http.Request) {
		writeFakeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
	}))
	mux.HandleFunc("POST /videos/related", fb.authed(fb.handleRelated))
	mux.HandleFunc("PATCH /podcasts/{id}", fb.authed(fb.handlePatchPodcast))
	mux.HandleFunc("POST /audio-files", fb.authed(fb.handleUpload))
	mux.HandleFunc("GET /podcasts", fb.authed(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]any{"array": fb.podcasts})
	}))
	mux.HandleFunc("GET /audio-files", fb.authed(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, map[string]any{"array": fb.audioFiles})
	}))
	mux.HandleFunc("GET /exercises/podcast/{id}", fb.authed(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		list := fb.exercises[r.PathValue("id")]
		if list == nil {
			list = []*Exercise{}
		}
		writeFakeJSON(w, http.StatusOK, map[string]any{"array": list})
	}))
	mux.HandleFunc("PATCH /exercises/{id}", fb.authed(fb.handleAnswer))
	mux.HandleFunc("GET /uploads/", fb.handleFile)

	fb.Server = httptest.NewServer(fb.record(mux))
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake.
func (fb *FakeBackend) URL() string { return fb.Server.URL }

// AllowAnonymous disables the bearer token check.
func (fb *FakeBackend) AllowAnonymous() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.requireAuth = false
}

// AddPodcast registers a podcast listing entry.
func (fb *FakeBackend) AddPodcast(p Podcast) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.podcasts = append(fb.podcasts, p)
}

// AddAudioFile registers an audio file and the bytes served at its path.
func (fb *FakeBackend) AddAudioFile(a AudioFile, data []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.audioFiles = append(fb.audioFiles, a)
	fb.files["/"+strings.TrimPrefix(a.FilePath, "/")] = data
}

// AddExercises registers the quiz for podcastID.
func (fb *FakeBackend) AddExercises(podcastID string, list ...Exercise) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := range list {
		ex := list[i]
		fb.exercises[podcastID] = append(fb.exercises[podcastID], &ex)
	}
}

// SetRelated replaces the response body of POST /videos/related.
func (fb *FakeBackend) SetRelated(body map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.related = body
}

// FailWith makes "METHOD /path" answer with status and a JSON message.
func (fb *FakeBackend) FailWith(route string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[route] = status
}

// Requests returns a copy of every recorded request.
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]RecordedRequest(nil), fb.requests...)
}

// RequestsTo returns the recorded requests matching "METHOD /path".
func (fb *FakeBackend) RequestsTo(route string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range fb.Requests() {
		if req.Method+" "+req.Path == route {
			out = append(out, req)
		}
	}
	return out
}

// Uploads returns a copy of every recorded audio upload.
func (fb *FakeBackend) Uploads() []RecordedUpload {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]RecordedUpload(nil), fb.uploads...)
}

func (fb *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		fb.mu.Lock()
		fb.requests = append(fb.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		status, failing := fb.failures[r.Method+" "+r.URL.Path]
		fb.mu.Unlock()

		if failing {
			writeFakeJSON(w, status, map[string]any{"message": fmt.Sprintf("forced failure %d", status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *FakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		require := fb.requireAuth
		fb.mu.Unlock()
		if require && r.Header.Get("Authorization") != "Bearer "+FakeToken {
			writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

func (fb *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}
	if creds.Email != FakeEmail || creds.Password != FakePassword {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid email or password"})
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"token": FakeToken,
		"user":  map[string]any{"id": 7, "name": "Ada", "email": FakeEmail},
	})
}

func (fb *FakeBackend) handleRelated(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeFakeJSON(w, http.StatusOK, fb.related)
}

func (fb *FakeBackend) handlePatchPodcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AIGeneratedText string `json:"ai_generated_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}
	id := r.PathValue("id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := range fb.podcasts {
		if fb.podcasts[i].ID == id {
			fb.podcasts[i].AIGeneratedText = body.AIGeneratedText
		}
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id, "ai_generated_text": body.AIGeneratedText}})
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart body"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": "file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	podcastID := r.FormValue("podcast_id")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	path := fmt.Sprintf("uploads/%s.mp3", podcastID)
	fb.uploads = append(fb.uploads, RecordedUpload{PodcastID: podcastID, Filename: header.Filename, Data: data})
	fb.audioFiles = append(fb.audioFiles, AudioFile{ID: fmt.Sprintf("a%d", len(fb.audioFiles)+1), PodcastID: podcastID, FilePath: path})
	fb.files["/"+path] = data
	writeFakeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"podcast_id": podcastID, "file_path": path}})
}

func (fb *FakeBackend) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserAnswer string `json:"user_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}
	id := r.PathValue("id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, list := range fb.exercises {
		for _, ex := range list {
			if ex.ID != id {
				continue
			}
			ex.UserAnswer = body.UserAnswer
			ex.Status = "Incorrect"
			if body.UserAnswer == ex.CorrectAnswer {
				ex.Status = "Correct"
			}
			writeFakeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"id":          ex.ID,
				"user_answer": ex.UserAnswer,
				"status":      ex.Status,
			}})
			return
		}
	}
	writeFakeJSON(w, http.StatusNotFound, map[string]any{"message": "Exercise not found"})
}

func (fb *FakeBackend) handleFile(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	data, ok := fb.files[r.URL.Path]
	fb.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func writeFakeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
