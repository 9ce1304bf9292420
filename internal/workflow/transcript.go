package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"lingocast/internal/services/backend"
)

// TranscriptText picks the text to rewrite: the podcast's AI text when
// present, then the transcript segments joined by spaces, then the record
// itself as indented JSON.
func TranscriptText(record backend.RelatedRecord) string {
	if record.Podcast != nil {
		if text := strings.TrimSpace(record.Podcast.AIGeneratedText); text != "" {
			return text
		}
	}
	if len(record.Transcripts) > 0 {
		parts := make([]string, 0, len(record.Transcripts))
		for _, segment := range record.Transcripts {
			parts = append(parts, segment.Text)
		}
		return strings.Join(parts, " ")
	}
	if len(record.Raw) > 0 {
		var raw string
		if err := json.Unmarshal(record.Raw, &raw); err == nil {
			return raw
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, record.Raw, "", "  "); err == nil {
			return buf.String()
		}
		return string(record.Raw)
	}
	encoded, _ := json.MarshalIndent(record, "", "  ")
	return string(encoded)
}

// BuildPrompt renders the rewrite request sent to the chat model.
func BuildPrompt(transcript string, form Form) string {
	lang := form.LanguageName()
	var b strings.Builder
	b.WriteString("I have a YouTube video transcript that I want to turn into a better podcast transcript.\n")
	b.WriteString("You choose a suitable title for the podcast and a suitable name for the host of the podcast.\n\n")
	b.WriteString("Original Transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Keywords to focus on: %s\n\n", strings.Join(form.Keywords, ", "))
	fmt.Fprintf(&b, "Language: %s\n", lang)
	fmt.Fprintf(&b, "Proficiency level: %s\n\n", LevelLabel(form.LanguageLevel))
	b.WriteString("Please create an improved, more engaging podcast script from this content.\n")
	fmt.Fprintf(&b, "The podcast should be in %s language.\n", lang)
	b.WriteString("Focus on natural conversation flow, clear explanations of the keywords, and appropriate language for the specified proficiency level.\n")
	b.WriteString("Structure it with introduction, main content, conclusion sections and finally one speaker.\n")
	return b.String()
}
