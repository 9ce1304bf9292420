package backend_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lingocast/internal/gateway"
	"lingocast/internal/services/backend"
	"lingocast/internal/testsupport"
)

func newClient(t *testing.T, fb *testsupport.FakeBackend) *backend.Client {
	t.Helper()
	gw := gateway.New(fb.URL(), 0, gateway.WithTokenSource(func() string { return testsupport.FakeToken }))
	return backend.New(gw)
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	client := newClient(t, fb)

	resp, err := client.Login(context.Background(), backend.Credentials{Email: testsupport.FakeEmail, Password: testsupport.FakePassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != testsupport.FakeToken || resp.User.ID != "7" || resp.User.Name != "Ada" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	_, err = client.Login(context.Background(), backend.Credentials{Email: "x", Password: "y"})
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestExtractRelatedPayloadShape(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	client := newClient(t, fb)

	record, err := client.ExtractRelated(context.Background(), backend.VideoSubmission{
		URL:      "https://youtube.com/watch?v=abc",
		Keywords: []backend.Keyword{{Keyword: "economy", UserLevel: "3"}},
	})
	if err != nil {
		t.Fatalf("ExtractRelated: %v", err)
	}
	if record.PodcastID() != "p1" || record.VideoID() != "v1" || len(record.Transcripts) != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(record.Raw) == 0 {
		t.Fatal("expected raw body to be kept")
	}

	reqs := fb.RequestsTo("POST /videos/related")
	if len(reqs) != 1 {
		t.Fatalf("expected one extraction request, got %d", len(reqs))
	}
	want := `{"url":"https://youtube.com/watch?v=abc","keywords":[{"keyword":"economy","user_level":"3"}]}`
	if got := string(bytes.TrimSpace(reqs[0].Body)); got != want {
		t.Fatalf("unexpected payload\n got %s\nwant %s", got, want)
	}
}

func TestPatchUploadListAndAnswer(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.AddPodcast(testsupport.Podcast{ID: "p1", Video: testsupport.Video{ID: "v1", Title: "Economy 101"}})
	fb.AddExercises("p1",
		testsupport.Exercise{ID: "e1", Question: "Q1", AnswerChoices: []string{"a", "b"}, CorrectAnswer: "b"},
	)
	client := newClient(t, fb)
	ctx := context.Background()

	if err := client.PatchPodcast(ctx, "p1", backend.PodcastPatch{AIGeneratedText: "script", VideoID: "v1"}); err != nil {
		t.Fatalf("PatchPodcast: %v", err)
	}
	patch := fb.RequestsTo("PATCH /podcasts/p1")
	if len(patch) != 1 || string(bytes.TrimSpace(patch[0].Body)) != `{"ai_generated_text":"script","video_id":"v1"}` {
		t.Fatalf("unexpected patch requests %+v", patch)
	}

	audio := testsupport.AudioBytes(100)
	file, err := client.UploadAudio(ctx, "p1", bytes.NewReader(audio))
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	uploads := fb.Uploads()
	if len(uploads) != 1 || uploads[0].Filename != "podcast.mp3" || uploads[0].PodcastID != "p1" || !bytes.Equal(uploads[0].Data, audio) {
		t.Fatalf("unexpected uploads %+v", uploads)
	}

	podcasts, err := client.ListPodcasts(ctx)
	if err != nil || len(podcasts) != 1 || podcasts[0].AIGeneratedText != "script" || podcasts[0].Title() != "Economy 101" {
		t.Fatalf("ListPodcasts: %+v %v", podcasts, err)
	}
	files, err := client.ListAudioFiles(ctx)
	if err != nil || len(files) != 1 || files[0].FilePath != file.FilePath {
		t.Fatalf("ListAudioFiles: %+v %v", files, err)
	}

	body, size, err := client.OpenAudio(ctx, file.FilePath)
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if !bytes.Equal(data, audio) || size != int64(len(audio)) {
		t.Fatalf("unexpected audio download size=%d", size)
	}
	if got := client.AudioURL("uploads/p1.mp3"); got != fb.URL()+"/uploads/p1.mp3" {
		t.Fatalf("unexpected audio url %q", got)
	}

	questions, err := client.QuizForPodcast(ctx, "p1")
	if err != nil || len(questions) != 1 || questions[0].CorrectAnswer != "b" {
		t.Fatalf("QuizForPodcast: %+v %v", questions, err)
	}
	verdict, err := client.SaveAnswer(ctx, "e1", "b")
	if err != nil || !verdict.Correct() {
		t.Fatalf("SaveAnswer: %+v %v", verdict, err)
	}
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var v struct {
		A backend.ID `json:"a"`
		B backend.ID `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"x-1"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "42" || v.B != "x-1" {
		t.Fatalf("unexpected ids %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":42,"b":"x-1"}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestListingsDecodeBareArrayBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/podcasts":
			io.WriteString(w, `{"array":[{"id":1},{"id":2}]}`)
		case "/audio-files":
			io.WriteString(w, `{"array":[{"id":9,"podcast_id":1,"file_path":"uploads/1.mp3"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	client := backend.New(gateway.New(srv.URL, 0))

	podcasts, err := client.ListPodcasts(context.Background())
	if err != nil {
		t.Fatalf("ListPodcasts: %v", err)
	}
	if len(podcasts) != 2 || podcasts[0].ID != "1" || podcasts[1].ID != "2" {
		t.Fatalf("unexpected podcasts %+v", podcasts)
	}
	files, err := client.ListAudioFiles(context.Background())
	if err != nil {
		t.Fatalf("ListAudioFiles: %v", err)
	}
	if len(files) != 1 || files[0].PodcastID != "1" || files[0].FilePath != "uploads/1.mp3" {
		t.Fatalf("unexpected audio files %+v", files)
	}
}
