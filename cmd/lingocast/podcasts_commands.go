package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lingocast/internal/app"
	"lingocast/internal/library"
)

func newPodcastsCommand(ctx *commandContext) *cobra.Command {
	podcastsCmd := &cobra.Command{
		Use:   "podcasts",
		Short: "Browse and download generated podcasts",
	}
	podcastsCmd.AddCommand(newPodcastsListCommand(ctx))
	podcastsCmd.AddCommand(newPodcastsDownloadCommand(ctx))
	return podcastsCmd
}

func newPodcastsListCommand(ctx *commandContext) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your podcasts with their audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRoute(cmd, app.PathPodcasts, func(runCtx context.Context, a *app.App, _ app.Route) error {
				listing, err := a.Library.Load(runCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, listing)
				}
				out := cmd.OutOrStdout()
				if debug {
					stats := listing.Stats
					fmt.Fprintf(out, "podcasts=%d audio_files=%d matched=%d\n", stats.TotalPodcasts, stats.TotalAudioFiles, stats.MatchedPairs)
					fmt.Fprintf(out, "podcast ids: %s\n", strings.Join(stats.PodcastIDs, ", "))
					fmt.Fprintf(out, "audio podcast ids: %s\n", strings.Join(stats.AudioFileIDs, ", "))
				}
				if len(listing.Entries) == 0 {
					fmt.Fprintln(out, "No podcasts yet. Create one with `lingocast dashboard`.")
					return nil
				}
				rows := make([][]string, 0, len(listing.Entries))
				for i, entry := range listing.Entries {
					audio := "no audio yet"
					if entry.HasAudio {
						audio = entry.AudioURL
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						entry.Podcast.ID.String(),
						entry.Title,
						audio,
						valueOr(entry.VideoURL, "-"),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "ID", "Title", "Audio", "Video"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Print podcast and audio-file counts")
	return cmd
}

func newPodcastsDownloadCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <podcast-id|#>",
		Short: "Download a podcast's MP3 named after its video title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRoute(cmd, app.PathPodcasts, func(runCtx context.Context, a *app.App, _ app.Route) error {
				listing, err := a.Library.Load(runCtx)
				if err != nil {
					return err
				}
				entry, err := findEntry(listing, args[0])
				if err != nil {
					return err
				}
				target := strings.TrimSpace(dir)
				if target == "" {
					target = a.Config.Paths.DownloadDir
				}
				path, err := a.Library.Download(runCtx, entry, target)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"podcast_id": entry.Podcast.ID.String(), "path": path})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (defaults to paths.download_dir)")
	return cmd
}

// findEntry accepts a podcast id or a 1-based row number from `podcasts list`.
func findEntry(listing library.Listing, ref string) (library.Entry, error) {
	ref = strings.TrimSpace(ref)
	if entry, ok := listing.Find(ref); ok {
		return entry, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(listing.Entries) {
		return listing.Entries[n-1], nil
	}
	return library.Entry{}, fmt.Errorf("podcast %q not found", ref)
}
