package quiz

import (
	"context"

	"lingocast/internal/localstore"
)

// DraftStore persists unsubmitted selections between invocations.
type DraftStore interface {
	SaveDraft(ctx context.Context, kind, key string, v any) error
	LoadDraft(ctx context.Context, kind, key string, v any) (bool, error)
	DeleteDraft(ctx context.Context, kind, key string) error
}

type draft struct {
	Answers []int `json:"answers"`
	Active  int   `json:"active"`
}

// Restore applies locally saved selections to a fresh attempt. Attempts that
// the server already holds answers for ignore the local draft, as do drafts
// saved for a different number of questions.
func Restore(ctx context.Context, store DraftStore, a *Attempt) error {
	if a.Submitted {
		return store.DeleteDraft(ctx, localstore.DraftQuiz, a.PodcastID)
	}
	var saved draft
	ok, err := store.LoadDraft(ctx, localstore.DraftQuiz, a.PodcastID, &saved)
	if err != nil || !ok {
		return err
	}
	if len(saved.Answers) != len(a.Questions) {
		return nil
	}
	for i, answer := range saved.Answers {
		if answer >= 0 && answer < len(a.Questions[i].AnswerChoices) {
			a.Answers[i] = answer
		}
	}
	a.Jump(saved.Active)
	return nil
}

// Persist saves the selections of an unsubmitted attempt, or drops the draft
// once the server holds the answers.
func Persist(ctx context.Context, store DraftStore, a *Attempt) error {
	if a.Submitted {
		return store.DeleteDraft(ctx, localstore.DraftQuiz, a.PodcastID)
	}
	return store.SaveDraft(ctx, localstore.DraftQuiz, a.PodcastID, draft{Answers: a.Answers, Active: a.Active})
}
