package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"lingocast/internal/gateway"
	"lingocast/internal/quiz"
	"lingocast/internal/services/backend"
	"lingocast/internal/testsupport"
)

func questions(n int) []backend.Question {
	out := make([]backend.Question, n)
	for i := range out {
		out[i] = backend.Question{
			ID:            backend.ID(fmt.Sprintf("q%d", i+1)),
			Question:      fmt.Sprintf("Question %d?", i+1),
			AnswerChoices: []string{"a", "b", "c"},
			CorrectAnswer: "a",
		}
	}
	return out
}

type stubSaver struct {
	mu      sync.Mutex
	calls   int
	correct map[backend.ID]bool
	fail    backend.ID
}

func (s *stubSaver) SaveAnswer(_ context.Context, id backend.ID, answer string) (backend.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if id == s.fail {
		return backend.AnswerResult{}, errors.New("boom")
	}
	status := "Incorrect"
	if s.correct[id] {
		status = backend.StatusCorrect
	}
	return backend.AnswerResult{ID: id, Status: status, UserAnswer: answer}, nil
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct{ part, total, want int }{
		{7, 8, 88},
		{1, 8, 13},
		{1, 3, 33},
		{2, 3, 67},
		{0, 5, 0},
		{5, 5, 100},
		{1, 0, 0},
	}
	for _, tc := range cases {
		if got := quiz.Percent(tc.part, tc.total); got != tc.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", tc.part, tc.total, got, tc.want)
		}
	}
}

func TestSubmitScoresSevenOfEight(t *testing.T) {
	qs := questions(8)
	attempt, err := quiz.NewAttempt("p1", qs)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	saver := &stubSaver{correct: map[backend.ID]bool{}}
	for i := range qs {
		attempt.Jump(i)
		if err := attempt.Select(0); err != nil {
			t.Fatalf("Select: %v", err)
		}
		if i < 7 {
			saver.correct[qs[i].ID] = true
		}
	}
	if !attempt.Complete() {
		t.Fatal("expected complete attempt")
	}
	if err := attempt.Submit(context.Background(), saver); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	score, ok := attempt.Score()
	if !ok || score != 88 {
		t.Fatalf("expected 88, got %d (ok=%v)", score, ok)
	}
	result, _ := attempt.Result()
	if result.Headline != "Excellent!" || result.Correct != 7 || result.Total != 8 {
		t.Fatalf("unexpected result %+v", result)
	}
	if saver.calls != 8 {
		t.Fatalf("expected 8 saves, got %d", saver.calls)
	}
	if err := attempt.Select(1); !errors.Is(err, quiz.ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted after submit, got %v", err)
	}
}

func TestSubmitRequiresEveryAnswer(t *testing.T) {
	attempt, _ := quiz.NewAttempt("p1", questions(2))
	_ = attempt.Select(0)
	if err := attempt.Submit(context.Background(), &stubSaver{}); !errors.Is(err, quiz.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestSubmitPartialFailure(t *testing.T) {
	qs := questions(3)
	attempt, _ := quiz.NewAttempt("p1", qs)
	for i := range qs {
		attempt.Jump(i)
		_ = attempt.Select(0)
	}
	saver := &stubSaver{correct: map[backend.ID]bool{}, fail: "q2"}

	err := attempt.Submit(context.Background(), saver)
	if !errors.Is(err, quiz.ErrSubmitFailed) {
		t.Fatalf("expected ErrSubmitFailed, got %v", err)
	}
	if err.Error() != quiz.SubmitFailedMessage {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if saver.calls != 3 {
		t.Fatalf("every save should be attempted, got %d", saver.calls)
	}
	if attempt.Submitted {
		t.Fatal("failed submission must not mark the attempt submitted")
	}
	if _, ok := attempt.Score(); ok {
		t.Fatal("no score after a failed submission")
	}
}

func TestNewAttemptRestoresServerAnswers(t *testing.T) {
	qs := questions(2)
	qs[0].UserAnswer = "b"
	qs[0].Status = "Incorrect"
	attempt, err := quiz.NewAttempt("p1", qs)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	if !attempt.Submitted || attempt.Answers[0] != 1 || attempt.Answers[1] != -1 {
		t.Fatalf("unexpected restored attempt %+v", attempt)
	}
	if got := attempt.Feedback(0); got != "The correct answer is: a. You answered: b" {
		t.Fatalf("unexpected feedback %q", got)
	}
	if got := attempt.Feedback(1); got != "The correct answer is: a" {
		t.Fatalf("unexpected feedback %q", got)
	}
}

func TestNavigationClamps(t *testing.T) {
	attempt, _ := quiz.NewAttempt("p1", questions(3))
	attempt.Back()
	if attempt.Active != 0 {
		t.Fatalf("expected clamp at 0, got %d", attempt.Active)
	}
	attempt.Jump(10)
	if attempt.Active != 2 {
		t.Fatalf("expected clamp at last, got %d", attempt.Active)
	}
	attempt.Next()
	if attempt.Active != 2 {
		t.Fatalf("expected to stay at last, got %d", attempt.Active)
	}
	if err := attempt.Select(5); err == nil {
		t.Fatal("expected out-of-range choice to fail")
	}
}

func TestTitleFromText(t *testing.T) {
	cases := map[string]string{
		"**Title:** \"Money Talks\"\nWelcome": "Money Talks",
		"Plain heading\nbody":                 "Plain heading",
		"":                                    "Quiz",
	}
	for text, want := range cases {
		if got := quiz.TitleFromText(text); got != want {
			t.Fatalf("TitleFromText(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestHeadlineBands(t *testing.T) {
	if quiz.Headline(80) != "Excellent!" || quiz.Headline(79) != "Good Job!" || quiz.Headline(60) != "Good Job!" || quiz.Headline(59) != "Keep Practicing!" {
		t.Fatal("unexpected headline bands")
	}
}

func TestDraftPersistence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	attempt, _ := quiz.NewAttempt("p9", questions(2))
	_ = attempt.Select(2)
	attempt.Next()
	if err := quiz.Persist(ctx, store, attempt); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored, _ := quiz.NewAttempt("p9", questions(2))
	if err := quiz.Restore(ctx, store, restored); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Answers[0] != 2 || restored.Answers[1] != -1 || restored.Active != 1 {
		t.Fatalf("unexpected restored selections %+v", restored)
	}
}

func TestSubmitAgainstBackend(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.AddExercises("p1",
		testsupport.Exercise{ID: "e1", Question: "1?", AnswerChoices: []string{"x", "y"}, CorrectAnswer: "x"},
		testsupport.Exercise{ID: "e2", Question: "2?", AnswerChoices: []string{"x", "y"}, CorrectAnswer: "y"},
	)
	gw := gateway.New(fb.URL(), 0, gateway.WithTokenSource(func() string { return testsupport.FakeToken }))
	api := backend.New(gw)
	ctx := context.Background()

	qs, err := api.QuizForPodcast(ctx, "p1")
	if err != nil {
		t.Fatalf("QuizForPodcast: %v", err)
	}
	attempt, err := quiz.NewAttempt("p1", qs)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}
	_ = attempt.Select(0)
	attempt.Next()
	_ = attempt.Select(0)
	if err := attempt.Submit(ctx, api); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if score, _ := attempt.Score(); score != 50 {
		t.Fatalf("expected 50, got %d", score)
	}
	if n := len(fb.RequestsTo("PATCH /exercises/e1")) + len(fb.RequestsTo("PATCH /exercises/e2")); n != 2 {
		t.Fatalf("expected 2 answer saves, got %d", n)
	}

	qs, _ = api.QuizForPodcast(ctx, "p1")
	again, _ := quiz.NewAttempt("p1", qs)
	if !again.Submitted || again.Correct() != 1 {
		t.Fatalf("expected restored submitted attempt, got %+v", again)
	}
}
