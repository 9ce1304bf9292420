package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"lingocast/internal/gateway"
)

// Route paths.
const (
	PathAuth          = "/auth"
	PathLogout        = "/auth/logout"
	PathVideosRelated = "/videos/related"
	PathPodcasts      = "/podcasts"
	PathAudioFiles    = "/audio-files"
	PathExercises     = "/exercises"

	// UploadFilename is the part filename the backend expects for podcast audio.
	UploadFilename = "podcast.mp3"
)

// Client exposes typed backend endpoints over the gateway.
type Client struct {
	gw *gateway.Client
}

// New wraps a gateway client.
func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.gw.PostJSON(ctx, PathAuth, creds, &resp); err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return LoginResponse{}, &gateway.Error{
			Kind:    gateway.KindBackend,
			Method:  "POST",
			Path:    PathAuth,
			Message: "Login response did not include a token",
		}
	}
	return resp, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.PostJSON(ctx, PathLogout, nil, nil)
}

// ExtractRelated submits a video and keywords and returns the extraction record.
func (c *Client) ExtractRelated(ctx context.Context, submission VideoSubmission) (RelatedRecord, error) {
	var raw json.RawMessage
	if err := c.gw.PostJSON(ctx, PathVideosRelated, submission, &raw); err != nil {
		return RelatedRecord{}, err
	}
	var record RelatedRecord
	if len(raw) > 0 {
		// Records that are not objects still keep Raw for the transcript fallback.
		_ = json.Unmarshal(raw, &record)
	}
	record.Raw = raw
	return record, nil
}

// PatchPodcast stores the rewritten transcript on the podcast.
func (c *Client) PatchPodcast(ctx context.Context, podcastID ID, patch PodcastPatch) error {
	return c.gw.PatchJSON(ctx, PathPodcasts+"/"+url.PathEscape(podcastID.String()), patch, nil)
}

// UploadAudio posts audio for a podcast as multipart form data.
func (c *Client) UploadAudio(ctx context.Context, podcastID ID, audio io.Reader) (AudioFile, error) {
	var resp dataEnvelope[AudioFile]
	err := c.gw.PostMultipart(ctx, PathAudioFiles,
		gateway.FilePart{Field: "file", Filename: UploadFilename, Content: audio},
		map[string]string{"podcast_id": podcastID.String()},
		&resp,
	)
	if err != nil {
		return AudioFile{}, err
	}
	return resp.Data, nil
}

// ListPodcasts returns every podcast of the user.
func (c *Client) ListPodcasts(ctx context.Context) ([]Podcast, error) {
	var resp bareArray[Podcast]
	if err := c.gw.GetJSON(ctx, PathPodcasts, &resp); err != nil {
		return nil, err
	}
	return resp.Array, nil
}

// ListAudioFiles returns every uploaded audio file.
func (c *Client) ListAudioFiles(ctx context.Context) ([]AudioFile, error) {
	var resp bareArray[AudioFile]
	if err := c.gw.GetJSON(ctx, PathAudioFiles, &resp); err != nil {
		return nil, err
	}
	return resp.Array, nil
}

// QuizForPodcast returns the ordered quiz questions of a podcast.
func (c *Client) QuizForPodcast(ctx context.Context, podcastID ID) ([]Question, error) {
	var resp bareArray[Question]
	path := fmt.Sprintf("%s/podcast/%s", PathExercises, url.PathEscape(podcastID.String()))
	if err := c.gw.GetJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Array, nil
}

// SaveAnswer stores the user's answer and returns the server verdict.
func (c *Client) SaveAnswer(ctx context.Context, exerciseID ID, userAnswer string) (AnswerResult, error) {
	var resp dataEnvelope[AnswerResult]
	body := map[string]string{"user_answer": userAnswer}
	if err := c.gw.PatchJSON(ctx, PathExercises+"/"+url.PathEscape(exerciseID.String()), body, &resp); err != nil {
		return AnswerResult{}, err
	}
	return resp.Data, nil
}

// AudioURL resolves a stored file path against the backend base URL.
func (c *Client) AudioURL(filePath string) string {
	return c.gw.BaseURL() + "/" + strings.TrimLeft(filePath, "/")
}

// OpenAudio streams a stored audio file.
func (c *Client) OpenAudio(ctx context.Context, filePath string) (io.ReadCloser, int64, error) {
	return c.gw.Download(ctx, "/"+strings.TrimLeft(filePath, "/"))
}
