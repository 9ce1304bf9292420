package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingocast/internal/fileutil"
	"lingocast/internal/gateway"
	"lingocast/internal/library"
	"lingocast/internal/localstore"
	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/services/ai"
	"lingocast/internal/services/backend"
)

const (
	draftKey = "dashboard"

	extractFailedMessage   = "Failed to extract transcript. Please try again."
	rewriteFailedMessage   = "Failed to generate enhanced transcript with AI. Please try again."
	synthFailedMessage     = "Failed to generate podcast MP3. Please try again."
	uploadFailedMessage    = "Failed to upload podcast audio file. Please try again."
	patchFailedMessage     = "Failed to save podcast transcript. Please try again."
	patchMissingIDsMessage = "Unable to save transcript: missing required data"
	interruptedMessage     = "The previous run was interrupted. Please try again."
)

// Voice is the narrator choice offered to the user.
type Voice string

const (
	VoiceFemale Voice = "female"
	VoiceMale   Voice = "male"
)

// ParseVoice accepts female or male; empty selects female.
func ParseVoice(value string) (Voice, error) {
	switch Voice(strings.ToLower(strings.TrimSpace(value))) {
	case "", VoiceFemale:
		return VoiceFemale, nil
	case VoiceMale:
		return VoiceMale, nil
	default:
		return "", fmt.Errorf("unknown voice %q (expected female or male)", value)
	}
}

// Preset maps the voice to the speech model's preset.
func (v Voice) Preset() ai.Voice {
	if v == VoiceMale {
		return ai.VoiceOnyx
	}
	return ai.VoiceNova
}

// Backend is the subset of the backend API the workflow calls.
type Backend interface {
	ExtractRelated(ctx context.Context, submission backend.VideoSubmission) (backend.RelatedRecord, error)
	PatchPodcast(ctx context.Context, podcastID backend.ID, patch backend.PodcastPatch) error
	UploadAudio(ctx context.Context, podcastID backend.ID, audio io.Reader) (backend.AudioFile, error)
}

// Generator produces the rewritten script and its audio.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Synthesize(ctx context.Context, req ai.SpeechRequest) ([]byte, error)
}

// Invalidator drops cached listings after an upload.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix ...string) error
}

// Draft is the persisted dashboard: the form, the state and every stage's output.
type Draft struct {
	Form      Form                   `json:"form"`
	State     State                  `json:"state"`
	Record    *backend.RelatedRecord `json:"record,omitempty"`
	Rewritten string                 `json:"rewritten,omitempty"`
	Voice     Voice                  `json:"voice,omitempty"`
	AudioPath string                 `json:"audio_path,omitempty"`
	Upload    *backend.AudioFile     `json:"upload,omitempty"`
	// Error is the single shared alert message.
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newDraft() Draft {
	return Draft{State: State{Phase: PhaseIdle}, Voice: VoiceFemale}
}

// PodcastID returns the id of the podcast created by extraction.
func (d Draft) PodcastID() backend.ID {
	if d.Record == nil {
		return ""
	}
	return d.Record.PodcastID()
}

// Transcript returns the extracted text shown to the user.
func (d Draft) Transcript() string {
	if d.Record == nil {
		return ""
	}
	return TranscriptText(*d.Record)
}

// AudioURL returns a playable file:// reference to the synthesized audio.
func (d Draft) AudioURL() string {
	if d.AudioPath == "" {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(d.AudioPath)}).String()
}

// Uploaded reports whether the audio reached the backend.
func (d Draft) Uploaded() bool {
	return d.State.Phase == PhaseDone && d.Upload != nil
}

// Allowed reports whether the trigger for stage is available.
func (d Draft) Allowed(stage Stage) bool {
	if !d.State.Allowed(stage) {
		return false
	}
	if stage == StageUpload {
		return d.AudioPath != "" && !d.PodcastID().Empty()
	}
	return true
}

// clearFrom drops the outputs of stage and every later stage.
func (d *Draft) clearFrom(stage Stage) {
	idx := stage.index()
	if idx <= 0 {
		d.Record = nil
	}
	if idx <= 1 {
		d.Rewritten = ""
	}
	if idx <= 2 && d.AudioPath != "" {
		_ = os.Remove(d.AudioPath)
		d.AudioPath = ""
	}
	if idx <= 3 {
		d.Upload = nil
	}
}

// StageError reports a failed stage. Message is the alert shown to the user.
// Completed is true when the stage itself succeeded and only a follow-up
// step failed.
type StageError struct {
	Stage     Stage
	Message   string
	Completed bool
	Err       error
}

func (e *StageError) Error() string { return e.Message }

func (e *StageError) Unwrap() error { return e.Err }

// Service runs the submission workflow against persisted state. Each stage
// holds the workflow lock, so separate processes can drive successive stages
// but never two at once.
type Service struct {
	store    *localstore.Store
	api      Backend
	gen      Generator
	cache    Invalidator
	audioDir string
	lockPath string
	logger   *slog.Logger
	now      func() time.Time
}

// Options configures a Service.
type Options struct {
	Store    *localstore.Store
	API      Backend
	AI       Generator
	Cache    Invalidator
	AudioDir string
	LockPath string
	Logger   *slog.Logger
}

// NewService constructs the workflow service.
func NewService(opts Options) *Service {
	return &Service{
		store:    opts.Store,
		api:      opts.API,
		gen:      opts.AI,
		cache:    opts.Cache,
		audioDir: opts.AudioDir,
		lockPath: opts.LockPath,
		logger:   logging.NewComponentLogger(opts.Logger, "workflow"),
		now:      time.Now,
	}
}

// Status returns the persisted draft. A run interrupted by a crashed process
// is reported as failed once no process holds the lock.
func (s *Service) Status(ctx context.Context) (Draft, error) {
	lock := localstore.NewLock(s.lockPath)
	if err := lock.TryAcquire(); err != nil {
		if errors.Is(err, localstore.ErrLocked) {
			return s.load(ctx)
		}
		return Draft{}, err
	}
	defer func() { _ = lock.Release() }()
	return s.loadRecovered(ctx)
}

// UpdateForm applies fn to the form and persists it.
func (s *Service) UpdateForm(ctx context.Context, fn func(*Form) error) (Draft, error) {
	var out Draft
	err := s.withLock(ctx, func(draft *Draft) error {
		if err := fn(&draft.Form); err != nil {
			return err
		}
		out = *draft
		return s.save(ctx, draft)
	})
	if err != nil {
		return Draft{}, err
	}
	return out, nil
}

// Reset clears the form, every stage output and the error in one step and
// deletes the synthesized audio.
func (s *Service) Reset(ctx context.Context) (Draft, error) {
	fresh := newDraft()
	err := s.withLock(ctx, func(draft *Draft) error {
		draft.clearFrom(StageExtract)
		if err := s.store.DeleteDraft(ctx, localstore.DraftWorkflow, draftKey); err != nil {
			return err
		}
		s.logger.Info("workflow reset", logging.String(logging.FieldEventType, "workflow_reset"))
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	return fresh, nil
}

// Extract validates the form and asks the backend for the transcript record.
func (s *Service) Extract(ctx context.Context) (Draft, error) {
	return s.run(ctx, StageExtract, func(draft *Draft) error {
		if err := draft.Form.Validate(); err != nil {
			return err
		}
		return nil
	}, func(ctx context.Context, draft *Draft) error {
		submission := backend.VideoSubmission{URL: strings.TrimSpace(draft.Form.YouTubeLink)}
		for _, keyword := range draft.Form.Keywords {
			submission.Keywords = append(submission.Keywords, backend.Keyword{
				Keyword:   keyword,
				UserLevel: draft.Form.LanguageLevel,
			})
		}
		record, err := s.api.ExtractRelated(ctx, submission)
		if err != nil {
			return err
		}
		draft.Record = &record
		return nil
	})
}

// Rewrite generates the podcast script and saves it to the backend. A failed
// save keeps the script and reports a StageError with Completed set.
func (s *Service) Rewrite(ctx context.Context) (Draft, error) {
	return s.run(ctx, StageRewrite, nil, func(ctx context.Context, draft *Draft) error {
		prompt := BuildPrompt(TranscriptText(*draft.Record), draft.Form)
		content, err := s.gen.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		draft.Rewritten = content

		podcastID, videoID := draft.Record.PodcastID(), draft.Record.VideoID()
		if podcastID.Empty() || videoID.Empty() {
			draft.Error = patchMissingIDsMessage
			return nil
		}
		patch := backend.PodcastPatch{AIGeneratedText: content, VideoID: videoID}
		if err := s.api.PatchPodcast(ctx, podcastID, patch); err != nil {
			logging.WarnWithContext(s.logger, "podcast transcript not saved", "podcast_patch_failed",
				"rewritten script kept locally only",
				logging.String(logging.FieldPodcastID, podcastID.String()),
				logging.Error(err),
			)
			draft.Error = patchFailedMessage
		}
		return nil
	})
}

// Synthesize converts the rewritten script to audio in the state directory.
func (s *Service) Synthesize(ctx context.Context, voice Voice) (Draft, error) {
	return s.run(ctx, StageSynthesize, nil, func(ctx context.Context, draft *Draft) error {
		audio, err := s.gen.Synthesize(ctx, ai.SpeechRequest{Voice: voice.Preset(), Input: draft.Rewritten})
		if err != nil {
			return err
		}
		path, err := s.writeAudio(draft.PodcastID(), audio)
		if err != nil {
			return err
		}
		draft.Voice = voice
		draft.AudioPath = path
		return nil
	})
}

// Upload posts the synthesized audio with the podcast id.
func (s *Service) Upload(ctx context.Context) (Draft, error) {
	return s.run(ctx, StageUpload, nil, func(ctx context.Context, draft *Draft) error {
		f, err := os.Open(draft.AudioPath)
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer f.Close()
		uploaded, err := s.api.UploadAudio(ctx, draft.PodcastID(), f)
		if err != nil {
			return err
		}
		draft.Upload = &uploaded
		if s.cache != nil {
			for _, key := range []string{library.KeyPodcasts, library.KeyAudioFiles} {
				if err := s.cache.Invalidate(ctx, key); err != nil {
					s.logger.Warn("invalidate podcast listing failed", logging.String("key", key), logging.Error(err))
				}
			}
		}
		return nil
	})
}

func (s *Service) run(
	ctx context.Context,
	stage Stage,
	precheck func(*Draft) error,
	exec func(context.Context, *Draft) error,
) (Draft, error) {
	var out Draft
	var stageErr error
	err := s.withLock(ctx, func(draft *Draft) error {
		if precheck != nil {
			if err := precheck(draft); err != nil {
				draft.Error = err.Error()
				stageErr = err
				out = *draft
				return s.save(ctx, draft)
			}
		}
		next, err := draft.State.Begin(stage)
		if err == nil && !draft.Allowed(stage) {
			err = &TransitionError{From: draft.State.Phase, Stage: stage, Event: "begin"}
		}
		if err != nil {
			draft.Error = err.Error()
			stageErr = err
			out = *draft
			return s.save(ctx, draft)
		}

		draft.clearFrom(stage)
		draft.State = next
		draft.Error = ""
		if err := s.save(ctx, draft); err != nil {
			return err
		}

		stageCtx := services.WithStage(ctx, string(stage))
		if id := draft.PodcastID(); !id.Empty() {
			stageCtx = services.WithPodcastID(stageCtx, id.String())
		}
		logger := logging.WithContext(stageCtx, s.logger)
		started := s.now()
		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		if execErr := exec(stageCtx, draft); execErr != nil {
			message := failureMessage(stage, execErr)
			draft.clearFrom(stage)
			draft.State, _ = draft.State.Fail(stage, message)
			draft.Error = message
			logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String("error_message", message),
				logging.Error(execErr),
			)
			stageErr = &StageError{Stage: stage, Message: message, Err: execErr}
			out = *draft
			return s.save(ctx, draft)
		}

		draft.State, _ = draft.State.Complete(stage)
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_phase", string(draft.State.Phase)),
			logging.Duration("stage_duration", s.now().Sub(started)),
		)
		if draft.Error != "" {
			stageErr = &StageError{Stage: stage, Message: draft.Error, Completed: true}
		}
		out = *draft
		return s.save(ctx, draft)
	})
	if err != nil {
		return Draft{}, err
	}
	return out, stageErr
}

// failureMessage picks the alert for a failed stage. Extraction shows the
// backend's message; the AI stages and the upload use fixed messages.
func failureMessage(stage Stage, err error) string {
	switch stage {
	case StageExtract:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && strings.TrimSpace(gwErr.Message) != "" {
			return gwErr.Message
		}
		return extractFailedMessage
	case StageRewrite:
		return rewriteFailedMessage
	case StageSynthesize:
		return synthFailedMessage
	case StageUpload:
		return uploadFailedMessage
	}
	return err.Error()
}

func (s *Service) withLock(ctx context.Context, fn func(*Draft) error) error {
	lock := localstore.NewLock(s.lockPath)
	if err := lock.TryAcquire(); err != nil {
		if errors.Is(err, localstore.ErrLocked) {
			return ErrStageInFlight
		}
		return err
	}
	defer func() { _ = lock.Release() }()

	draft, err := s.loadRecovered(ctx)
	if err != nil {
		return err
	}
	return fn(&draft)
}

func (s *Service) load(ctx context.Context) (Draft, error) {
	draft := newDraft()
	if _, err := s.store.LoadDraft(ctx, localstore.DraftWorkflow, draftKey, &draft); err != nil {
		return Draft{}, fmt.Errorf("load workflow: %w", err)
	}
	if draft.State.Phase == "" {
		draft.State.Phase = PhaseIdle
	}
	return draft, nil
}

// loadRecovered loads the draft while the caller holds the lock. A persisted
// in-flight phase can only come from a process that died mid-stage.
func (s *Service) loadRecovered(ctx context.Context) (Draft, error) {
	draft, err := s.load(ctx)
	if err != nil {
		return Draft{}, err
	}
	if stage, ok := draft.State.Running(); ok {
		draft.clearFrom(stage)
		draft.State, _ = draft.State.Fail(stage, interruptedMessage)
		draft.Error = interruptedMessage
		logging.WarnWithContext(s.logger, "recovered interrupted stage", "stage_interrupted",
			"stage must be triggered again", logging.String(logging.FieldStage, string(stage)))
		if err := s.save(ctx, &draft); err != nil {
			return Draft{}, err
		}
	}
	return draft, nil
}

func (s *Service) save(ctx context.Context, draft *Draft) error {
	draft.UpdatedAt = s.now().UTC()
	if err := s.store.SaveDraft(ctx, localstore.DraftWorkflow, draftKey, draft); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

func (s *Service) writeAudio(podcastID backend.ID, audio []byte) (string, error) {
	name := "podcast.mp3"
	if !podcastID.Empty() {
		name = "podcast-" + fileutil.SanitizeToken(podcastID.String()) + ".mp3"
	}
	path, _, err := fileutil.WriteAtomic(s.audioDir, name, bytes.NewReader(audio), nil)
	if err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return path, nil
}
