package progress_test

import (
	"context"
	"testing"

	"lingocast/internal/gateway"
	"lingocast/internal/progress"
	"lingocast/internal/querycache"
	"lingocast/internal/services/backend"
	"lingocast/internal/testsupport"
)

func TestStars(t *testing.T) {
	cases := map[int]string{
		0:   "☆☆☆☆☆",
		9:   "☆☆☆☆☆",
		10:  "⯪☆☆☆☆",
		40:  "★★☆☆☆",
		75:  "★★★⯪☆",
		88:  "★★★★☆",
		90:  "★★★★⯪",
		100: "★★★★★",
	}
	for score, want := range cases {
		if got := progress.Stars(score); got != want {
			t.Fatalf("Stars(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		score int
		want  progress.Band
	}{
		{100, progress.BandSuccess},
		{80, progress.BandSuccess},
		{79, progress.BandPrimary},
		{60, progress.BandPrimary},
		{59, progress.BandWarning},
	}
	for _, tc := range cases {
		if got := progress.BandFor(tc.score); got != tc.want {
			t.Fatalf("BandFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestReportAggregatesAnsweredQuizzes(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	fb.AddPodcast(testsupport.Podcast{ID: "p1", AIGeneratedText: "**Title:** \"Money Talks\"\nhi", Video: testsupport.Video{ID: "v1", Title: "Economy 101"}})
	fb.AddPodcast(testsupport.Podcast{ID: "p2", Video: testsupport.Video{ID: "v2", Title: "Travel"}})
	fb.AddPodcast(testsupport.Podcast{ID: "p3", Video: testsupport.Video{ID: "v3", Title: "No quiz"}})
	fb.AddExercises("p1",
		testsupport.Exercise{ID: "e1", Question: "1?", AnswerChoices: []string{"x", "y"}, CorrectAnswer: "x", UserAnswer: "x", Status: "Correct"},
		testsupport.Exercise{ID: "e2", Question: "2?", AnswerChoices: []string{"x", "y"}, CorrectAnswer: "y", UserAnswer: "x", Status: "Incorrect"},
	)
	fb.AddExercises("p2",
		testsupport.Exercise{ID: "e3", Question: "3?", AnswerChoices: []string{"x", "y"}, CorrectAnswer: "x"},
	)

	gw := gateway.New(fb.URL(), 0, gateway.WithTokenSource(func() string { return testsupport.FakeToken }))
	cache := querycache.New(querycache.Options{StaleTime: querycache.DefaultStaleTime})
	tracker := progress.New(backend.New(gw), cache, 2, nil)

	report, err := tracker.Report(context.Background())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Podcasts != 3 || report.QuizzesTaken != 1 || report.TotalQuestions != 3 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.AnsweredQuestions != 2 || report.CorrectAnswers != 1 || report.OverallScore != 50 {
		t.Fatalf("unexpected score %+v", report)
	}
	if len(report.Recent) != 1 {
		t.Fatalf("expected one recent quiz, got %+v", report.Recent)
	}
	recent := report.Recent[0]
	if recent.PodcastID != "p1" || recent.Title != "Money Talks" || recent.Score != 50 || recent.Band != progress.BandWarning || recent.Stars != "★★⯪☆☆" {
		t.Fatalf("unexpected recent entry %+v", recent)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	report := progress.Summarize(nil, nil)
	if report.OverallScore != 0 || report.Stars != "☆☆☆☆☆" || report.Recent == nil {
		t.Fatalf("unexpected empty report %+v", report)
	}
}
