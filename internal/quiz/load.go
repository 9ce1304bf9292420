package quiz

import (
	"context"

	"lingocast/internal/querycache"
	"lingocast/internal/services/backend"
)

// KeyQuiz prefixes the cached question lists, one entry per podcast.
const KeyQuiz = "quiz"

// QuestionSource fetches the exercises of a podcast.
type QuestionSource interface {
	QuizForPodcast(ctx context.Context, podcastID backend.ID) ([]backend.Question, error)
}

// Questions returns the cached questions for podcastID.
func Questions(ctx context.Context, cache *querycache.Cache, src QuestionSource, podcastID string) ([]backend.Question, error) {
	return querycache.Query(ctx, cache, []string{KeyQuiz, podcastID}, func(ctx context.Context) ([]backend.Question, error) {
		return src.QuizForPodcast(ctx, backend.ID(podcastID))
	})
}

// Load fetches the questions for podcastID and starts an attempt over them.
func Load(ctx context.Context, cache *querycache.Cache, src QuestionSource, podcastID string) (*Attempt, error) {
	questions, err := Questions(ctx, cache, src, podcastID)
	if err != nil {
		return nil, err
	}
	return NewAttempt(podcastID, questions)
}
