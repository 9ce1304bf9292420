package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"lingocast/internal/services/backend"
)

// SubmitFailedMessage is the alert shown when any answer fails to save.
const SubmitFailedMessage = "There was an error saving your answers. Please try again."

var (
	// ErrSubmitFailed marks a submission where at least one save failed.
	// Answers that were saved are not rolled back.
	ErrSubmitFailed = errors.New("quiz submission failed")
	// ErrIncomplete is returned when submitting with unanswered questions.
	ErrIncomplete = errors.New("answer every question before submitting")
	// ErrSubmitted is returned when changing or resubmitting a submitted quiz.
	ErrSubmitted = errors.New("quiz already submitted")
	// ErrNoQuestions is returned for a podcast without a quiz.
	ErrNoQuestions = errors.New("there are no questions available for this podcast")
)

// SubmitError reports a failed submission. It matches ErrSubmitFailed and
// the first save error.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return SubmitFailedMessage }

func (e *SubmitError) Unwrap() []error { return []error{ErrSubmitFailed, e.Err} }

// AnswerSaver stores one answer and returns the server verdict.
type AnswerSaver interface {
	SaveAnswer(ctx context.Context, exerciseID backend.ID, userAnswer string) (backend.AnswerResult, error)
}

// Verdict is the server's judgment of one answer.
type Verdict struct {
	Status     string `json:"status"`
	UserAnswer string `json:"user_answer"`
}

// Correct reports whether the verdict is "Correct".
func (v Verdict) Correct() bool {
	return v.Status == backend.StatusCorrect
}

// Attempt is one pass through a podcast's quiz.
type Attempt struct {
	PodcastID string
	Questions []backend.Question
	// Answers holds the selected choice index per question, -1 when unset.
	Answers   []int
	Active    int
	Submitted bool
	Verdicts  []Verdict
}

// NewAttempt starts an attempt. Questions that already carry a user answer
// restore the selection; if any do, the attempt is already submitted and
// keeps the server statuses.
func NewAttempt(podcastID string, questions []backend.Question) (*Attempt, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	a := &Attempt{
		PodcastID: podcastID,
		Questions: questions,
		Answers:   make([]int, len(questions)),
		Verdicts:  make([]Verdict, len(questions)),
	}
	for i, q := range questions {
		a.Answers[i] = -1
		a.Verdicts[i] = Verdict{Status: q.Status, UserAnswer: q.UserAnswer}
		if q.UserAnswer == "" {
			continue
		}
		if idx := indexOf(q.AnswerChoices, q.UserAnswer); idx >= 0 {
			a.Answers[i] = idx
			a.Submitted = true
		}
	}
	return a, nil
}

func indexOf(choices []string, value string) int {
	for i, choice := range choices {
		if choice == value {
			return i
		}
	}
	return -1
}

// Current returns the active question.
func (a *Attempt) Current() backend.Question {
	return a.Questions[a.Active]
}

// Select answers the active question.
func (a *Attempt) Select(choice int) error {
	if a.Submitted {
		return ErrSubmitted
	}
	q := a.Current()
	if choice < 0 || choice >= len(q.AnswerChoices) {
		return fmt.Errorf("choice %d out of range (question has %d choices)", choice+1, len(q.AnswerChoices))
	}
	a.Answers[a.Active] = choice
	return nil
}

// Next moves forward, stopping at the last question.
func (a *Attempt) Next() { a.Jump(a.Active + 1) }

// Back moves backward, stopping at the first question.
func (a *Attempt) Back() { a.Jump(a.Active - 1) }

// Jump moves to question i, clamped to the valid range.
func (a *Attempt) Jump(i int) {
	a.Active = min(max(i, 0), len(a.Questions)-1)
}

// Complete reports whether every question has an answer.
func (a *Attempt) Complete() bool {
	for _, answer := range a.Answers {
		if answer < 0 {
			return false
		}
	}
	return len(a.Answers) > 0
}

// Answered counts the questions with a selection.
func (a *Attempt) Answered() int {
	n := 0
	for _, answer := range a.Answers {
		if answer >= 0 {
			n++
		}
	}
	return n
}

// Submit saves every answer concurrently and waits for all of them. If any
// save fails the attempt stays unsubmitted and a *SubmitError is returned;
// saves that succeeded are not undone.
func (a *Attempt) Submit(ctx context.Context, saver AnswerSaver) error {
	if a.Submitted {
		return ErrSubmitted
	}
	if !a.Complete() {
		return ErrIncomplete
	}

	verdicts := make([]Verdict, len(a.Questions))
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i, q := range a.Questions {
		answer := q.AnswerChoices[a.Answers[i]]
		g.Go(func() error {
			result, err := saver.SaveAnswer(ctx, q.ID, answer)
			if err != nil {
				return fmt.Errorf("save answer %s: %w", q.ID, err)
			}
			userAnswer := result.UserAnswer
			if userAnswer == "" {
				userAnswer = answer
			}
			mu.Lock()
			verdicts[i] = Verdict{Status: result.Status, UserAnswer: userAnswer}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &SubmitError{Err: err}
	}
	a.Verdicts = verdicts
	a.Submitted = true
	return nil
}

// Correct counts the "Correct" verdicts.
func (a *Attempt) Correct() int {
	n := 0
	for _, v := range a.Verdicts {
		if v.Correct() {
			n++
		}
	}
	return n
}

// Score returns the percentage of correct answers once submitted.
func (a *Attempt) Score() (int, bool) {
	if !a.Submitted {
		return 0, false
	}
	return Percent(a.Correct(), len(a.Questions)), true
}

// Percent returns round(part/total*100) with halves rounded up, so 7 of 8 is 88.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// Title is the first line of the podcast text with the title markup removed.
func (a *Attempt) Title() string {
	return TitleFromText(a.podcastText())
}

// VideoURL returns the source video of the quiz's podcast.
func (a *Attempt) VideoURL() string {
	if p := a.Questions[0].Podcast; p != nil {
		return p.VideoURL()
	}
	return ""
}

func (a *Attempt) podcastText() string {
	if p := a.Questions[0].Podcast; p != nil {
		return p.AIGeneratedText
	}
	return ""
}

// TitleFromText extracts a display title from generated podcast text.
func TitleFromText(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.Replace(line, `**Title:** "`, "", 1)
	line = strings.Replace(line, `"`, "", 1)
	if line == "" {
		return "Quiz"
	}
	return line
}

// Feedback describes the verdict of question i after submission.
func (a *Attempt) Feedback(i int) string {
	if !a.Submitted || i < 0 || i >= len(a.Questions) {
		return ""
	}
	q := a.Questions[i]
	v := a.Verdicts[i]
	switch {
	case v.Correct():
		return "Great job! Your answer is correct."
	case v.UserAnswer != "":
		return fmt.Sprintf("The correct answer is: %s. You answered: %s", q.CorrectAnswer, v.UserAnswer)
	default:
		return fmt.Sprintf("The correct answer is: %s", q.CorrectAnswer)
	}
}

// Result summarizes a submitted attempt.
type Result struct {
	Score          int    `json:"score"`
	Correct        int    `json:"correct"`
	Total          int    `json:"total"`
	Headline       string `json:"headline"`
	Recommendation string `json:"recommendation"`
}

// Result returns the summary, or false before submission.
func (a *Attempt) Result() (Result, bool) {
	score, ok := a.Score()
	if !ok {
		return Result{}, false
	}
	return Result{
		Score:          score,
		Correct:        a.Correct(),
		Total:          len(a.Questions),
		Headline:       Headline(score),
		Recommendation: Recommendation(score),
	}, true
}

// Headline is the one-word verdict for a score.
func Headline(score int) string {
	switch {
	case score >= 80:
		return "Excellent!"
	case score >= 60:
		return "Good Job!"
	default:
		return "Keep Practicing!"
	}
}

// Recommendation is the follow-up advice for a score.
func Recommendation(score int) string {
	switch {
	case score >= 80:
		return "You have a great understanding of this topic. Ready for more advanced content!"
	case score >= 60:
		return "You're doing well! Review the explanations for questions you missed."
	default:
		return "Consider reviewing the podcast again to strengthen your understanding."
	}
}
