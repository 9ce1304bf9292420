package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lingocast/internal/app"
	"lingocast/internal/quiz"
)

func newQuizCommand(ctx *commandContext) *cobra.Command {
	quizCmd := &cobra.Command{
		Use:   "quiz",
		Short: "Take the comprehension quiz for a podcast",
	}
	quizCmd.AddCommand(newQuizShowCommand(ctx))
	quizCmd.AddCommand(newQuizAnswerCommand(ctx))
	quizCmd.AddCommand(newQuizSubmitCommand(ctx))
	return quizCmd
}

// withAttempt enters /quiz/:podcastId and loads the attempt with any locally
// saved selections.
func withAttempt(ctx *commandContext, cmd *cobra.Command, podcastID string, fn func(context.Context, *app.App, *quiz.Attempt) error) error {
	return ctx.withRoute(cmd, app.QuizPath(podcastID), func(runCtx context.Context, a *app.App, route app.Route) error {
		attempt, err := quiz.Load(runCtx, a.Cache, a.Backend, route.Param("podcastId"))
		if err != nil {
			return err
		}
		if err := quiz.Restore(runCtx, a.Store, attempt); err != nil {
			return err
		}
		return fn(runCtx, a, attempt)
	})
}

func newQuizShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <podcast-id>",
		Short: "Show the questions, your selections and, once submitted, the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAttempt(ctx, cmd, args[0], func(_ context.Context, _ *app.App, attempt *quiz.Attempt) error {
				return printAttempt(ctx, cmd, attempt)
			})
		},
	}
}

func newQuizAnswerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <podcast-id> <question#> <choice#>",
		Short: "Select an answer (numbers are 1-based)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := parseOrdinal(args[1], "question")
			if err != nil {
				return err
			}
			choice, err := parseOrdinal(args[2], "choice")
			if err != nil {
				return err
			}
			return withAttempt(ctx, cmd, args[0], func(runCtx context.Context, a *app.App, attempt *quiz.Attempt) error {
				if question >= len(attempt.Questions) {
					return fmt.Errorf("question %d out of range (quiz has %d questions)", question+1, len(attempt.Questions))
				}
				attempt.Jump(question)
				if err := attempt.Select(choice); err != nil {
					return err
				}
				attempt.Next()
				if err := quiz.Persist(runCtx, a.Store, attempt); err != nil {
					return err
				}
				return printAttempt(ctx, cmd, attempt)
			})
		},
	}
}

func newQuizSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <podcast-id>",
		Short: "Save every answer and show the score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAttempt(ctx, cmd, args[0], func(runCtx context.Context, a *app.App, attempt *quiz.Attempt) error {
				if err := attempt.Submit(runCtx, a.Backend); err != nil {
					if errors.Is(err, quiz.ErrSubmitFailed) {
						_ = quiz.Persist(runCtx, a.Store, attempt)
					}
					return err
				}
				if err := a.Cache.Invalidate(runCtx, quiz.KeyQuiz, attempt.PodcastID); err != nil {
					return err
				}
				if err := quiz.Persist(runCtx, a.Store, attempt); err != nil {
					return err
				}
				return printAttempt(ctx, cmd, attempt)
			})
		},
	}
}

func parseOrdinal(value, what string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, value)
	}
	return n - 1, nil
}

type questionView struct {
	Number   int      `json:"number"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
	Selected string   `json:"selected,omitempty"`
	Status   string   `json:"status,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

type attemptView struct {
	PodcastID string         `json:"podcast_id"`
	Title     string         `json:"title"`
	VideoURL  string         `json:"video_url,omitempty"`
	Answered  int            `json:"answered"`
	Total     int            `json:"total"`
	Active    int            `json:"active"`
	Submitted bool           `json:"submitted"`
	Questions []questionView `json:"questions"`
	Result    *quiz.Result   `json:"result,omitempty"`
}

func buildAttemptView(attempt *quiz.Attempt) attemptView {
	view := attemptView{
		PodcastID: attempt.PodcastID,
		Title:     attempt.Title(),
		VideoURL:  attempt.VideoURL(),
		Answered:  attempt.Answered(),
		Total:     len(attempt.Questions),
		Active:    attempt.Active + 1,
		Submitted: attempt.Submitted,
	}
	for i, q := range attempt.Questions {
		qv := questionView{Number: i + 1, Question: q.Question, Choices: q.AnswerChoices}
		if idx := attempt.Answers[i]; idx >= 0 && idx < len(q.AnswerChoices) {
			qv.Selected = q.AnswerChoices[idx]
		}
		if attempt.Submitted {
			qv.Status = attempt.Verdicts[i].Status
			qv.Feedback = attempt.Feedback(i)
		}
		view.Questions = append(view.Questions, qv)
	}
	if result, ok := attempt.Result(); ok {
		view.Result = &result
	}
	return view
}

func printAttempt(ctx *commandContext, cmd *cobra.Command, attempt *quiz.Attempt) error {
	view := buildAttemptView(attempt)
	if ctx.jsonOutput() {
		return writeJSON(cmd, view)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, view.Title)
	if view.VideoURL != "" {
		fmt.Fprintf(out, "Video: %s\n", view.VideoURL)
	}
	fmt.Fprintf(out, "Answered %d of %d\n\n", view.Answered, view.Total)
	for _, q := range view.Questions {
		marker := " "
		if !view.Submitted && q.Number == view.Active {
			marker = ">"
		}
		fmt.Fprintf(out, "%s %d. %s\n", marker, q.Number, q.Question)
		for i, choice := range q.Choices {
			selected := "( )"
			if choice == q.Selected {
				selected = "(*)"
			}
			fmt.Fprintf(out, "     %s %d) %s\n", selected, i+1, choice)
		}
		if q.Feedback != "" {
			color := text.FgRed
			if q.Status == "Correct" {
				color = text.FgGreen
			}
			fmt.Fprintf(out, "     %s\n", colorize(out, q.Feedback, color))
		}
		fmt.Fprintln(out)
	}
	if view.Result != nil {
		printResult(out, *view.Result)
	}
	return nil
}

func printResult(out io.Writer, r quiz.Result) {
	fmt.Fprintf(out, "%s %d%% (%d/%d correct)\n", r.Headline, r.Score, r.Correct, r.Total)
	fmt.Fprintln(out, r.Recommendation)
}
