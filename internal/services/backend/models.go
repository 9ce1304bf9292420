package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a backend identifier. The backend may send numbers or strings; both
// decode to the same textual form, and integers are re-encoded as numbers.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON encodes integer ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s != "" && (s == "0" || !strings.HasPrefix(s, "0")) {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return []byte(s), nil
		}
	}
	return json.Marshal(s)
}

func (id ID) String() string { return string(id) }

// Empty reports whether the id is unset.
func (id ID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

// Credentials are posted to /auth.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the authenticated account.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResponse is the body returned by /auth.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Keyword is one focus keyword of a submission.
type Keyword struct {
	Keyword   string `json:"keyword"`
	UserLevel string `json:"user_level"`
}

// VideoSubmission is posted to /videos/related.
type VideoSubmission struct {
	URL      string    `json:"url"`
	Keywords []Keyword `json:"keywords"`
}

// Video is the backend's video record.
type Video struct {
	ID         ID     `json:"id"`
	Title      string `json:"title,omitempty"`
	YouTubeURL string `json:"youtube_url,omitempty"`
}

// Podcast is the backend's podcast record.
type Podcast struct {
	ID              ID     `json:"id"`
	AIGeneratedText string `json:"ai_generated_text,omitempty"`
	Video           *Video `json:"video,omitempty"`
}

// Title returns the podcast's video title or a placeholder.
func (p Podcast) Title() string {
	if p.Video != nil && strings.TrimSpace(p.Video.Title) != "" {
		return strings.TrimSpace(p.Video.Title)
	}
	return "Untitled podcast"
}

// VideoURL returns the source YouTube link if known.
func (p Podcast) VideoURL() string {
	if p.Video == nil {
		return ""
	}
	return p.Video.YouTubeURL
}

// TranscriptSegment is one timed piece of an extracted transcript.
type TranscriptSegment struct {
	Text string `json:"text"`
}

// RelatedRecord is the extraction result. Raw keeps the full body so the
// workflow can fall back to it when no transcript text is present.
type RelatedRecord struct {
	Podcast     *Podcast            `json:"podcast,omitempty"`
	Video       *Video              `json:"video,omitempty"`
	Transcripts []TranscriptSegment `json:"transcripts,omitempty"`
	Raw         json.RawMessage     `json:"raw,omitempty"`
}

// PodcastID returns the id of the created podcast, if any.
func (r RelatedRecord) PodcastID() ID {
	if r.Podcast == nil {
		return ""
	}
	return r.Podcast.ID
}

// VideoID returns the id of the related video, if any.
func (r RelatedRecord) VideoID() ID {
	if r.Video == nil {
		return ""
	}
	return r.Video.ID
}

// PodcastPatch is sent to PATCH /podcasts/{id}.
type PodcastPatch struct {
	AIGeneratedText string `json:"ai_generated_text"`
	VideoID         ID     `json:"video_id"`
}

// AudioFile links uploaded audio to a podcast.
type AudioFile struct {
	ID        ID     `json:"id,omitempty"`
	PodcastID ID     `json:"podcast_id"`
	FilePath  string `json:"file_path"`
}

// Question is one quiz exercise.
type Question struct {
	ID            ID       `json:"id"`
	Question      string   `json:"question"`
	AnswerChoices []string `json:"answer_choices"`
	CorrectAnswer string   `json:"correct_answer"`
	UserAnswer    string   `json:"user_answer,omitempty"`
	Status        string   `json:"status,omitempty"`
	Podcast       *Podcast `json:"podcast,omitempty"`
}

// StatusCorrect is the verdict the backend assigns to a right answer.
const StatusCorrect = "Correct"

// AnswerResult is the verdict returned when an answer is saved.
type AnswerResult struct {
	ID         ID     `json:"id,omitempty"`
	Status     string `json:"status"`
	UserAnswer string `json:"user_answer,omitempty"`
}

// Correct reports whether the verdict is "Correct".
func (a AnswerResult) Correct() bool {
	return a.Status == StatusCorrect
}

type bareArray[T any] struct {
	Array []T `json:"array"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}
