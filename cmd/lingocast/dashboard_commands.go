package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lingocast/internal/app"
	"lingocast/internal/workflow"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Create a podcast from a YouTube video",
		Long: `Create a podcast from a YouTube video.

Fill in the form with "dashboard set" and "dashboard keyword add", then run
the stages in order: extract, rewrite, synthesize, upload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.Status(runCtx)
			})
		},
	}

	dashboardCmd.AddCommand(newDashboardStatusCommand(ctx))
	dashboardCmd.AddCommand(newDashboardSetCommand(ctx))
	dashboardCmd.AddCommand(newDashboardKeywordCommand(ctx))
	dashboardCmd.AddCommand(newDashboardStageCommand(ctx, workflow.StageExtract, "Extract the video transcript"))
	dashboardCmd.AddCommand(newDashboardStageCommand(ctx, workflow.StageRewrite, "Rewrite the transcript as a podcast script"))
	dashboardCmd.AddCommand(newDashboardSynthesizeCommand(ctx))
	dashboardCmd.AddCommand(newDashboardStageCommand(ctx, workflow.StageUpload, "Upload the synthesized audio"))
	dashboardCmd.AddCommand(newDashboardResetCommand(ctx))
	return dashboardCmd
}

// runDashboard enters /dashboard, runs fn and prints the resulting draft. A
// failing stage still prints the draft before returning its error.
func runDashboard(ctx *commandContext, cmd *cobra.Command, fn func(context.Context, *workflow.Service) (workflow.Draft, error)) error {
	return ctx.withRoute(cmd, app.PathDashboard, func(runCtx context.Context, a *app.App, _ app.Route) error {
		draft, runErr := fn(runCtx, a.Workflow)
		if errors.Is(runErr, workflow.ErrStageInFlight) {
			return runErr
		}
		var printErr error
		if ctx.jsonOutput() {
			printErr = writeJSON(cmd, draftView(draft))
		} else {
			// The returned error carries the alert, so the banner is not repeated.
			printDraft(cmd.OutOrStdout(), draft, runErr == nil)
		}
		if runErr != nil {
			return runErr
		}
		return printErr
	})
}

func newDashboardStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the form and stage progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.Status(runCtx)
			})
		},
	}
}

func newDashboardSetCommand(ctx *commandContext) *cobra.Command {
	var link, language, level string
	var keywords []string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the submission form",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("link") && !flags.Changed("language") && !flags.Changed("level") && !flags.Changed("keywords") {
				return errors.New("nothing to update: pass --link, --language, --level or --keywords")
			}
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.UpdateForm(runCtx, func(form *workflow.Form) error {
					if flags.Changed("link") {
						form.YouTubeLink = strings.TrimSpace(link)
					}
					if flags.Changed("language") {
						form.Language = language
					}
					if flags.Changed("level") {
						value, err := parseLevel(level)
						if err != nil {
							return err
						}
						form.LanguageLevel = value
					}
					if flags.Changed("keywords") {
						form.Keywords = nil
						for _, word := range keywords {
							form.Keywords.Add(word)
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "YouTube video link")
	cmd.Flags().StringVar(&language, "language", "", "Language to learn")
	cmd.Flags().StringVar(&level, "level", "", "Proficiency level 1-6 or A1..C2")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Replace the keyword list (comma separated)")
	return cmd
}

// parseLevel accepts the form values 1-6 or the CEFR codes.
func parseLevel(value string) (string, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	cefr := map[string]string{"A1": "1", "A2": "2", "B1": "3", "B2": "4", "C1": "5", "C2": "6"}
	if mapped, ok := cefr[value]; ok {
		return mapped, nil
	}
	for _, level := range workflow.Levels() {
		if value == level {
			return level, nil
		}
	}
	return "", fmt.Errorf("unknown level %q (expected 1-6 or A1, A2, B1, B2, C1, C2)", value)
}

func newDashboardKeywordCommand(ctx *commandContext) *cobra.Command {
	keywordCmd := &cobra.Command{
		Use:   "keyword",
		Short: "Manage keyword chips",
	}
	keywordCmd.AddCommand(&cobra.Command{
		Use:   "add <word>...",
		Short: "Add keywords (blank and duplicate words are ignored)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.UpdateForm(runCtx, func(form *workflow.Form) error {
					for _, word := range args {
						form.Keywords.Add(word)
					}
					return nil
				})
			})
		},
	})
	keywordCmd.AddCommand(&cobra.Command{
		Use:   "remove <word>...",
		Short: "Remove keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.UpdateForm(runCtx, func(form *workflow.Form) error {
					for _, word := range args {
						form.Keywords.Remove(word)
					}
					return nil
				})
			})
		},
	})
	return keywordCmd
}

func newDashboardStageCommand(ctx *commandContext, stage workflow.Stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(stage),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				switch stage {
				case workflow.StageExtract:
					return svc.Extract(runCtx)
				case workflow.StageRewrite:
					return svc.Rewrite(runCtx)
				case workflow.StageUpload:
					return svc.Upload(runCtx)
				}
				return workflow.Draft{}, fmt.Errorf("unsupported stage %s", stage)
			})
		},
	}
}

func newDashboardSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var voiceFlag string
	cmd := &cobra.Command{
		Use:   string(workflow.StageSynthesize),
		Short: "Generate podcast audio from the rewritten script",
		RunE: func(cmd *cobra.Command, args []string) error {
			voice, err := workflow.ParseVoice(voiceFlag)
			if err != nil {
				return err
			}
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.Synthesize(runCtx, voice)
			})
		},
	}
	cmd.Flags().StringVar(&voiceFlag, "voice", string(workflow.VoiceFemale), "Narrator voice: female or male")
	return cmd
}

func newDashboardResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the form and every stage output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(ctx, cmd, func(runCtx context.Context, svc *workflow.Service) (workflow.Draft, error) {
				return svc.Reset(runCtx)
			})
		},
	}
}

type stageView struct {
	Stage   workflow.Stage `json:"stage"`
	Status  string         `json:"status"`
	Allowed bool           `json:"allowed"`
}

type dashboardView struct {
	Form       workflow.Form  `json:"form"`
	LevelLabel string         `json:"level_label"`
	State      workflow.State `json:"state"`
	Stages     []stageView    `json:"stages"`
	PodcastID  string         `json:"podcast_id,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	Rewritten  string         `json:"rewritten,omitempty"`
	Voice      workflow.Voice `json:"voice,omitempty"`
	AudioURL   string         `json:"audio_url,omitempty"`
	Uploaded   bool           `json:"uploaded"`
	Error      string         `json:"error,omitempty"`
}

func draftView(d workflow.Draft) dashboardView {
	view := dashboardView{
		Form:       d.Form,
		LevelLabel: workflow.LevelLabel(d.Form.LanguageLevel),
		State:      d.State,
		PodcastID:  d.PodcastID().String(),
		Transcript: d.Transcript(),
		Rewritten:  d.Rewritten,
		Voice:      d.Voice,
		AudioURL:   d.AudioURL(),
		Uploaded:   d.Uploaded(),
		Error:      d.Error,
	}
	for _, stage := range workflow.Stages() {
		view.Stages = append(view.Stages, stageView{Stage: stage, Status: stageStatus(d, stage), Allowed: d.Allowed(stage)})
	}
	return view
}

func stageStatus(d workflow.Draft, stage workflow.Stage) string {
	if running, ok := d.State.Running(); ok && running == stage {
		return "running"
	}
	if f := d.State.Failure; f != nil && f.Stage == stage {
		return "failed"
	}
	if d.State.Succeeded(stage) {
		return "done"
	}
	if d.Allowed(stage) {
		return "ready"
	}
	return "waiting"
}

func printDraft(out io.Writer, d workflow.Draft, showAlert bool) {
	view := draftView(d)
	keywords := "-"
	if len(d.Form.Keywords) > 0 {
		keywords = strings.Join(d.Form.Keywords, ", ")
	}
	form := [][]string{
		{"YouTube link", valueOr(d.Form.YouTubeLink, "-")},
		{"Language", valueOr(d.Form.Language, "-")},
		{"Level", view.LevelLabel},
		{"Keywords", keywords},
	}
	fmt.Fprintln(out, renderTable([]string{"Form", "Value"}, form, nil))

	rows := make([][]string, 0, len(view.Stages))
	for _, s := range view.Stages {
		status := s.Status
		switch status {
		case "done":
			status = colorize(out, status, text.FgGreen)
		case "failed":
			status = colorize(out, status, text.FgRed)
		case "ready":
			status = colorize(out, status, text.FgCyan)
		}
		rows = append(rows, []string{string(s.Stage), status})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Status"}, rows, nil))

	if view.PodcastID != "" {
		fmt.Fprintf(out, "Podcast: %s\n", view.PodcastID)
	}
	if view.Transcript != "" && view.Rewritten == "" {
		fmt.Fprintf(out, "\nYouTube transcript:\n%s\n", view.Transcript)
	}
	if view.Rewritten != "" {
		fmt.Fprintf(out, "\nEnhanced transcript:\n%s\n", view.Rewritten)
	}
	if view.AudioURL != "" {
		fmt.Fprintf(out, "\nAudio (%s voice): %s\n", view.Voice, view.AudioURL)
	}
	if view.Uploaded {
		fmt.Fprintln(out, colorize(out, "Podcast uploaded. Find it with `lingocast podcasts list`.", text.FgGreen))
	}
	if showAlert && view.Error != "" {
		fmt.Fprintln(out, colorize(out, view.Error, text.FgRed))
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
