package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lingocast/internal/app"
	"lingocast/internal/progress"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show quiz statistics across your podcasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRoute(cmd, app.PathProgress, func(runCtx context.Context, a *app.App, _ app.Route) error {
				report, err := a.Progress.Report(runCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				summary := [][]string{
					{"Podcasts", strconv.Itoa(report.Podcasts)},
					{"Quizzes taken", strconv.Itoa(report.QuizzesTaken)},
					{"Questions", strconv.Itoa(report.TotalQuestions)},
					{"Correct answers", fmt.Sprintf("%d/%d", report.CorrectAnswers, report.AnsweredQuestions)},
					{"Overall score", fmt.Sprintf("%d%% %s", report.OverallScore, report.Stars)},
				}
				fmt.Fprintln(out, renderTable([]string{"Statistic", "Value"}, summary, []columnAlignment{alignLeft, alignRight}))
				if len(report.Recent) == 0 {
					fmt.Fprintln(out, "No quizzes taken yet.")
					return nil
				}
				rows := make([][]string, 0, len(report.Recent))
				for _, q := range report.Recent {
					score := strconv.Itoa(q.Score) + "%"
					rows = append(rows, []string{q.Title, colorize(out, score, bandColor(q.Band)), fmt.Sprintf("%d/%d", q.Correct, q.Total), q.Stars})
				}
				fmt.Fprintln(out, renderTable([]string{"Quiz", "Score", "Correct", "Rating"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
				return nil
			})
		},
	}
}

func bandColor(band progress.Band) text.Color {
	switch band {
	case progress.BandSuccess:
		return text.FgGreen
	case progress.BandPrimary:
		return text.FgBlue
	default:
		return text.FgYellow
	}
}
