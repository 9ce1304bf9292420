package workflow

import (
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"lingocast/internal/language"
)

// DefaultLanguage is used in the prompt when no language is set.
const DefaultLanguage = "English"

var youTubeLinkPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.?be)/.+$`)

// Level labels keyed by the user_level value sent to the backend.
var levelLabels = map[string]string{
	"1": "A1 - Beginner",
	"2": "A2 - Elementary",
	"3": "B1 - Intermediate",
	"4": "B2 - Upper Intermediate",
	"5": "C1 - Advanced",
	"6": "C2 - Proficient",
}

// Levels returns the proficiency values in order.
func Levels() []string {
	return []string{"1", "2", "3", "4", "5", "6"}
}

// LevelLabel returns the CEFR label for a level value.
func LevelLabel(level string) string {
	if label, ok := levelLabels[strings.TrimSpace(level)]; ok {
		return label
	}
	return "Not specified"
}

// KeywordSet is the ordered, duplicate-free list of keyword chips.
type KeywordSet []string

// Add appends the trimmed input. Empty input and duplicates are ignored.
// It reports whether a chip was added.
func (k *KeywordSet) Add(input string) bool {
	word := strings.TrimSpace(input)
	if word == "" || slices.Contains(*k, word) {
		return false
	}
	*k = append(*k, word)
	return true
}

// Remove deletes a chip and reports whether it existed.
func (k *KeywordSet) Remove(word string) bool {
	before := len(*k)
	*k = slices.DeleteFunc(*k, func(existing string) bool { return existing == word })
	return len(*k) != before
}

// Form is the dashboard submission form.
type Form struct {
	YouTubeLink   string     `json:"youtube_link" validate:"required,youtube"`
	Language      string     `json:"language" validate:"required,notblank"`
	LanguageLevel string     `json:"language_level" validate:"required,oneof=1 2 3 4 5 6"`
	Keywords      KeywordSet `json:"keywords" validate:"min=1"`
}

// LanguageName returns the display name of the chosen language, or
// DefaultLanguage when none is set.
func (f Form) LanguageName() string {
	if name := language.DisplayName(f.Language); name != "" {
		return name
	}
	return DefaultLanguage
}

// ValidationError lists the form problems in field order. Error returns the
// first message.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "invalid form"
	}
	return e.Messages[0]
}

var fieldMessages = map[string]map[string]string{
	"YouTubeLink": {
		"required": "YouTube link is required",
		"youtube":  "Please enter a valid YouTube URL",
	},
	"Language": {
		"required": "Language is required",
		"notblank": "Please enter a language",
	},
	"LanguageLevel": {
		"required": "Please select the language proficiency level",
		"oneof":    "Please select the language proficiency level",
	},
	"Keywords": {
		"min": "Please add at least one keyword",
	},
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("youtube", func(fl validator.FieldLevel) bool {
		return youTubeLinkPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks the form before extraction.
func (f Form) Validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		msg := fieldMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = fe.Error()
		}
		verr.Messages = append(verr.Messages, msg)
	}
	return verr
}
