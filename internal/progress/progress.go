package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"lingocast/internal/logging"
	"lingocast/internal/querycache"
	"lingocast/internal/quiz"
	"lingocast/internal/services/backend"
)

// DefaultConcurrency bounds the number of quizzes fetched at once.
const DefaultConcurrency = 4

// Band is the badge color for a quiz score.
type Band string

const (
	BandSuccess Band = "success"
	BandPrimary Band = "primary"
	BandWarning Band = "warning"
)

// BandFor returns success at 80 and above, primary at 60 and above, and
// warning otherwise.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandSuccess
	case score >= 60:
		return BandPrimary
	default:
		return BandWarning
	}
}

// Source lists podcasts and their quizzes.
type Source interface {
	ListPodcasts(ctx context.Context) ([]backend.Podcast, error)
	quiz.QuestionSource
}

// QuizSummary is one answered quiz in the recent list.
type QuizSummary struct {
	PodcastID string `json:"podcast_id"`
	Title     string `json:"title"`
	Score     int    `json:"score"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
	Band      Band   `json:"band"`
	Stars     string `json:"stars"`
}

// Report aggregates quiz results across every podcast.
type Report struct {
	Podcasts          int           `json:"podcasts"`
	QuizzesTaken      int           `json:"quizzes_taken"`
	TotalQuestions    int           `json:"total_questions"`
	AnsweredQuestions int           `json:"answered_questions"`
	CorrectAnswers    int           `json:"correct_answers"`
	OverallScore      int           `json:"overall_score"`
	Stars             string        `json:"stars"`
	Recent            []QuizSummary `json:"recent"`
}

// Tracker computes progress reports.
type Tracker struct {
	src         Source
	cache       *querycache.Cache
	concurrency int
	logger      *slog.Logger
}

// New constructs a tracker. A non-positive concurrency uses DefaultConcurrency.
func New(src Source, cache *querycache.Cache, concurrency int, logger *slog.Logger) *Tracker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Tracker{
		src:         src,
		cache:       cache,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "progress"),
	}
}

// Report loads every podcast's quiz and summarizes the answered ones. Recent
// quizzes keep the podcast listing order.
func (t *Tracker) Report(ctx context.Context) (Report, error) {
	podcasts, err := querycache.Query(ctx, t.cache, []string{"podcasts"}, t.src.ListPodcasts)
	if err != nil {
		return Report{}, err
	}

	attempts := make([]*quiz.Attempt, len(podcasts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, p := range podcasts {
		g.Go(func() error {
			attempt, err := quiz.Load(gctx, t.cache, t.src, p.ID.String())
			if errors.Is(err, quiz.ErrNoQuestions) {
				return nil
			}
			if err != nil {
				return err
			}
			attempts[i] = attempt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Summarize(podcasts, attempts)
	t.logger.Debug("progress computed",
		logging.Int("podcasts", report.Podcasts),
		logging.Int("quizzes_taken", report.QuizzesTaken),
		logging.Int("overall_score", report.OverallScore),
	)
	return report, nil
}

// Summarize builds a report from attempts aligned with podcasts. Nil
// attempts are podcasts without a quiz.
func Summarize(podcasts []backend.Podcast, attempts []*quiz.Attempt) Report {
	report := Report{Podcasts: len(podcasts), Recent: []QuizSummary{}}
	for i, attempt := range attempts {
		if attempt == nil {
			continue
		}
		report.TotalQuestions += len(attempt.Questions)
		if !attempt.Submitted {
			continue
		}
		answered := attempt.Answered()
		correct := attempt.Correct()
		report.QuizzesTaken++
		report.AnsweredQuestions += answered
		report.CorrectAnswers += correct

		score, _ := attempt.Score()
		title := attempt.Title()
		if title == "Quiz" && i < len(podcasts) {
			title = quiz.TitleFromText(podcasts[i].AIGeneratedText)
			if title == "Quiz" {
				title = podcasts[i].Title()
			}
		}
		report.Recent = append(report.Recent, QuizSummary{
			PodcastID: attempt.PodcastID,
			Title:     title,
			Score:     score,
			Correct:   correct,
			Total:     len(attempt.Questions),
			Band:      BandFor(score),
			Stars:     Stars(score),
		})
	}
	report.OverallScore = quiz.Percent(report.CorrectAnswers, report.AnsweredQuestions)
	report.Stars = Stars(report.OverallScore)
	return report
}

// Stars renders a five-star rating: one full star per 20 points, a half star
// for a remainder of 10 or more, and empty stars to pad.
func Stars(score int) string {
	score = min(max(score, 0), 100)
	full := score / 20
	half := score%20 >= 10
	var b strings.Builder
	b.WriteString(strings.Repeat("★", full))
	n := full
	if half {
		b.WriteString("⯪")
		n++
	}
	b.WriteString(strings.Repeat("☆", 5-n))
	return b.String()
}
