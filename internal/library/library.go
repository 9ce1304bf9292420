package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"lingocast/internal/fileutil"
	"lingocast/internal/logging"
	"lingocast/internal/querycache"
	"lingocast/internal/services/backend"
)

// Query keys.
const (
	KeyPodcasts   = "podcasts"
	KeyAudioFiles = "audio-files"
)

// ErrNoAudio is returned when downloading a podcast without uploaded audio.
var ErrNoAudio = errors.New("this podcast has no audio yet")

// Source is the subset of the backend API the library reads.
type Source interface {
	ListPodcasts(ctx context.Context) ([]backend.Podcast, error)
	ListAudioFiles(ctx context.Context) ([]backend.AudioFile, error)
	AudioURL(filePath string) string
	OpenAudio(ctx context.Context, filePath string) (io.ReadCloser, int64, error)
}

// Entry is one podcast card.
type Entry struct {
	Podcast  backend.Podcast    `json:"podcast"`
	Audio    *backend.AudioFile `json:"audio,omitempty"`
	HasAudio bool               `json:"has_audio"`
	AudioURL string             `json:"audio_url,omitempty"`
	Title    string             `json:"title"`
	VideoURL string             `json:"video_url,omitempty"`
}

// Stats are the debug counts of a listing.
type Stats struct {
	TotalPodcasts   int      `json:"total_podcasts"`
	TotalAudioFiles int      `json:"total_audio_files"`
	MatchedPairs    int      `json:"matched_pairs"`
	AudioFileIDs    []string `json:"audio_file_ids"`
	PodcastIDs      []string `json:"podcast_ids"`
}

// Listing is the joined podcast and audio-file view.
type Listing struct {
	Entries []Entry `json:"entries"`
	Stats   Stats   `json:"stats"`
}

// Find returns the entry for a podcast id.
func (l Listing) Find(podcastID string) (Entry, bool) {
	for _, entry := range l.Entries {
		if entry.Podcast.ID.String() == podcastID {
			return entry, true
		}
	}
	return Entry{}, false
}

// Library loads and downloads the user's podcasts.
type Library struct {
	src      Source
	cache    *querycache.Cache
	progress io.Writer
	logger   *slog.Logger
}

// Option customizes the library.
type Option func(*Library)

// WithProgress draws a download progress bar on w. A nil writer disables it.
func WithProgress(w io.Writer) Option {
	return func(l *Library) {
		l.progress = w
	}
}

// WithLogger sets the library logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New constructs a library over src, caching listings in cache.
func New(src Source, cache *querycache.Cache, opts ...Option) *Library {
	l := &Library{src: src, cache: cache}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "library")
	return l
}

// Load fetches podcasts and audio files concurrently through the cache and
// joins them on podcast_id.
func (l *Library) Load(ctx context.Context) (Listing, error) {
	var (
		podcasts []backend.Podcast
		audio    []backend.AudioFile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		podcasts, err = querycache.Query(gctx, l.cache, []string{KeyPodcasts}, l.src.ListPodcasts)
		return err
	})
	g.Go(func() error {
		var err error
		audio, err = querycache.Query(gctx, l.cache, []string{KeyAudioFiles}, l.src.ListAudioFiles)
		return err
	})
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}
	listing := Join(podcasts, audio, l.src.AudioURL)
	l.logger.Debug("library loaded",
		logging.Int("total_podcasts", listing.Stats.TotalPodcasts),
		logging.Int("total_audio_files", listing.Stats.TotalAudioFiles),
		logging.Int("matched_pairs", listing.Stats.MatchedPairs),
	)
	return listing, nil
}

// Join pairs each podcast with the first audio file carrying its id.
func Join(podcasts []backend.Podcast, audio []backend.AudioFile, audioURL func(string) string) Listing {
	listing := Listing{Entries: make([]Entry, 0, len(podcasts))}
	listing.Stats.TotalPodcasts = len(podcasts)
	listing.Stats.TotalAudioFiles = len(audio)
	for _, a := range audio {
		listing.Stats.AudioFileIDs = append(listing.Stats.AudioFileIDs, a.PodcastID.String())
	}
	for _, p := range podcasts {
		listing.Stats.PodcastIDs = append(listing.Stats.PodcastIDs, p.ID.String())
		entry := Entry{Podcast: p, Title: p.Title(), VideoURL: p.VideoURL()}
		for i := range audio {
			if audio[i].PodcastID == p.ID {
				match := audio[i]
				entry.Audio = &match
				entry.HasAudio = true
				if audioURL != nil {
					entry.AudioURL = audioURL(match.FilePath)
				}
				listing.Stats.MatchedPairs++
				break
			}
		}
		listing.Entries = append(listing.Entries, entry)
	}
	return listing
}

// Download streams the entry's audio to "<video title>.mp3" in dir and
// returns the written path.
func (l *Library) Download(ctx context.Context, entry Entry, dir string) (string, error) {
	if !entry.HasAudio || entry.Audio == nil {
		return "", ErrNoAudio
	}
	body, size, err := l.src.OpenAudio(ctx, entry.Audio.FilePath)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var bar *progressbar.ProgressBar
	var tee io.Writer
	if l.progress != nil {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(l.progress),
			progressbar.OptionSetDescription(entry.Title),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
		tee = bar
	}
	target, written, err := fileutil.WriteAtomic(dir, FileName(entry), body, tee)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return "", fmt.Errorf("download %s: %w", entry.Audio.FilePath, err)
	}
	l.logger.Info("podcast downloaded",
		logging.String(logging.FieldPodcastID, entry.Podcast.ID.String()),
		logging.String("path", target),
		logging.Int64("bytes", written),
	)
	return target, nil
}

// FileName is the download name for an entry: the video title with
// filesystem-unsafe characters replaced, plus .mp3.
func FileName(entry Entry) string {
	name := entry.Title
	if entry.Podcast.Video != nil && strings.TrimSpace(entry.Podcast.Video.Title) != "" {
		name = entry.Podcast.Video.Title
	}
	name = fileutil.SanitizeFileName(name)
	if name == "" {
		name = "podcast-" + fileutil.SanitizeToken(entry.Podcast.ID.String())
	}
	return name + ".mp3"
}
