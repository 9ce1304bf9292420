package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lingocast/internal/app"
	"lingocast/internal/testsupport"
)

type cliTestEnv struct {
	backend    *testsupport.FakeBackend
	provider   *testsupport.FakeProvider
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LINGOCAST_BACKEND_URL", "")

	fb := testsupport.NewFakeBackend(t)
	fp := testsupport.NewFakeProvider(t)

	configPath := filepath.Join(base, "lingocast.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
download_dir = %q
log_dir = ""

[backend]
base_url = %q

[ai]
api_key = %q
base_url = %q
`, filepath.Join(base, "state"), filepath.Join(base, "downloads"), fb.URL(), testsupport.FakeProviderKey, fp.BaseURL())
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{backend: fb, provider: fp, configPath: configPath, baseDir: base}
}

func (env *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (env *cliTestEnv) login(t *testing.T) {
	t.Helper()
	out, err := env.run(t, "", "login", "--email", testsupport.FakeEmail, "--password", testsupport.FakePassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in as Ada")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "AI credential set: yes")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestProtectedCommandRequiresLogin(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "", "podcasts", "list")
	if !errors.Is(err, app.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if line := alertLine(err); !strings.HasPrefix(line, "Error: you need to log in first") {
		t.Fatalf("unexpected alert %q", line)
	}
}

func TestLoginPromptsAndProfile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, testsupport.FakeEmail+"\n"+testsupport.FakePassword+"\n", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in as Ada")

	out, err = env.run(t, "", "login")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	requireContains(t, out, "Already logged in as Ada")

	out, err = env.run(t, "", "--json", "profile")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	var user struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Email string          `json:"email"`
	}
	if err := json.Unmarshal([]byte(out), &user); err != nil {
		t.Fatalf("decode profile: %v\n%s", err, out)
	}
	if user.Name != "Ada" || user.Email != testsupport.FakeEmail {
		t.Fatalf("unexpected profile %+v", user)
	}

	out, err = env.run(t, "", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	requireContains(t, out, "Logged out")
	if _, err := env.run(t, "", "profile"); !errors.Is(err, app.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired after logout, got %v", err)
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "", "login", "--email", "x@example.com", "--password", "wrong")
	if err == nil {
		t.Fatal("expected login failure")
	}
	if line := alertLine(err); line != "Error: Invalid email or password" {
		t.Fatalf("unexpected alert %q", line)
	}
}

func TestDashboardEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	if _, err := env.run(t, "", "dashboard", "set", "--link", "https://youtube.com/watch?v=abc", "--language", "spanish", "--level", "B1"); err != nil {
		t.Fatalf("dashboard set: %v", err)
	}
	out, err := env.run(t, "", "dashboard", "keyword", "add", "economy", "economy", " ")
	if err != nil {
		t.Fatalf("keyword add: %v", err)
	}
	requireContains(t, out, "economy")

	if _, err := env.run(t, "", "dashboard", "rewrite"); err == nil {
		t.Fatal("expected rewrite to be rejected before extraction")
	}

	for _, stage := range [][]string{{"extract"}, {"rewrite"}, {"synthesize", "--voice", "male"}, {"upload"}} {
		if _, err := env.run(t, "", append([]string{"dashboard"}, stage...)...); err != nil {
			t.Fatalf("dashboard %s: %v", stage[0], err)
		}
	}

	out, err = env.run(t, "", "--json", "dashboard", "status")
	if err != nil {
		t.Fatalf("dashboard status: %v", err)
	}
	var view struct {
		Uploaded bool `json:"uploaded"`
		Stages   []struct {
			Stage  string `json:"stage"`
			Status string `json:"status"`
		} `json:"stages"`
		LevelLabel string `json:"level_label"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !view.Uploaded || view.LevelLabel != "B1 - Intermediate" {
		t.Fatalf("unexpected status %+v", view)
	}
	for _, s := range view.Stages {
		if s.Status != "done" {
			t.Fatalf("expected every stage done, got %+v", view.Stages)
		}
	}

	speeches := env.provider.Speeches()
	if len(speeches) != 1 || speeches[0].Voice != "onyx" {
		t.Fatalf("unexpected speech calls %+v", speeches)
	}
	if uploads := env.backend.Uploads(); len(uploads) != 1 || uploads[0].PodcastID != "p1" {
		t.Fatalf("unexpected uploads %+v", uploads)
	}

	out, err = env.run(t, "", "dashboard", "reset")
	if err != nil {
		t.Fatalf("dashboard reset: %v", err)
	}
	requireContains(t, out, "ready")
}

func TestDashboardValidationAlert(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, err := env.run(t, "", "dashboard", "extract")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if line := alertLine(err); !strings.Contains(line, "YouTube link is required") {
		t.Fatalf("unexpected alert %q", line)
	}
	if len(env.backend.RequestsTo("POST /videos/related")) != 0 {
		t.Fatal("invalid form reached the backend")
	}
}

func TestPodcastsListAndDownload(t *testing.T) {
	env := setupCLITestEnv(t)
	audio := testsupport.AudioBytes(512)
	env.backend.AddPodcast(testsupport.Podcast{ID: "p1", Video: testsupport.Video{ID: "v1", Title: "Economy 101", YouTubeURL: "https://youtube.com/watch?v=abc"}})
	env.backend.AddAudioFile(testsupport.AudioFile{ID: "a1", PodcastID: "p1", FilePath: "uploads/p1.mp3"}, audio)
	env.login(t)

	out, err := env.run(t, "", "podcasts", "list", "--debug")
	if err != nil {
		t.Fatalf("podcasts list: %v", err)
	}
	requireContains(t, out, "Economy 101")
	requireContains(t, out, "matched=1")

	dir := filepath.Join(env.baseDir, "out")
	out, err = env.run(t, "", "podcasts", "download", "1", "--dir", dir)
	if err != nil {
		t.Fatalf("podcasts download: %v", err)
	}
	requireContains(t, out, "Economy 101.mp3")
	data, err := os.ReadFile(filepath.Join(dir, "Economy 101.mp3"))
	if err != nil || !bytes.Equal(data, audio) {
		t.Fatalf("unexpected download: %v", err)
	}
}

func TestQuizAnswerSubmitAndProgress(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.AddPodcast(testsupport.Podcast{ID: "p1", AIGeneratedText: "**Title:** \"Money Talks\"\nhello", Video: testsupport.Video{ID: "v1", Title: "Economy 101"}})
	env.backend.AddExercises("p1",
		testsupport.Exercise{ID: "e1", Question: "First?", AnswerChoices: []string{"a", "b"}, CorrectAnswer: "a"},
		testsupport.Exercise{ID: "e2", Question: "Second?", AnswerChoices: []string{"a", "b"}, CorrectAnswer: "b"},
	)
	env.login(t)

	if _, err := env.run(t, "", "quiz", "answer", "p1", "1", "1"); err != nil {
		t.Fatalf("quiz answer: %v", err)
	}
	if _, err := env.run(t, "", "quiz", "submit", "p1"); err == nil {
		t.Fatal("expected submit to require every answer")
	}
	if _, err := env.run(t, "", "quiz", "answer", "p1", "2", "1"); err != nil {
		t.Fatalf("quiz answer: %v", err)
	}
	out, err := env.run(t, "", "quiz", "submit", "p1")
	if err != nil {
		t.Fatalf("quiz submit: %v", err)
	}
	requireContains(t, out, "Keep Practicing! 50% (1/2 correct)")
	requireContains(t, out, "The correct answer is: b. You answered: a")

	out, err = env.run(t, "", "--json", "progress")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var report struct {
		QuizzesTaken int `json:"quizzes_taken"`
		OverallScore int `json:"overall_score"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode progress: %v\n%s", err, out)
	}
	if report.QuizzesTaken != 1 || report.OverallScore != 50 {
		t.Fatalf("unexpected progress %+v", report)
	}
}
