package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// KindNetwork means no HTTP response was received.
	KindNetwork Kind = "network"
	// KindBackend means the backend answered with a non-2xx status other than 401.
	KindBackend Kind = "backend"
	// KindUnauthorized means the backend answered 401.
	KindUnauthorized Kind = "unauthorized"
)

// Error is returned by every gateway call that fails. Message is the
// human-readable line shown to the user.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	// FromServer is true when Message was provided by the backend body.
	FromServer bool
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsUnauthorized reports whether err is a gateway 401.
func IsUnauthorized(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == KindUnauthorized
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}

// ServerMessageOr returns the backend-provided message carried by err, or
// fallback when the failure has none.
func ServerMessageOr(err error, fallback string) string {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.FromServer {
		return gwErr.Message
	}
	return fallback
}

func networkError(method, path string, err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Method:  method,
		Path:    path,
		Message: "Network Error: unable to reach the server",
		Err:     err,
	}
}

func statusError(method, path string, status int, body []byte) *Error {
	kind := KindBackend
	if status == http.StatusUnauthorized {
		kind = KindUnauthorized
	}
	message := serverMessage(body)
	fromServer := message != ""
	if !fromServer {
		message = fmt.Sprintf("Request failed with status code %d", status)
	}
	return &Error{
		Kind:       kind,
		Status:     status,
		Method:     method,
		Path:       path,
		Message:    message,
		FromServer: fromServer,
		Err:        fmt.Errorf("%s %s: http %d", method, path, status),
	}
}

// serverMessage extracts the backend's message or error field. The error
// field may be a string or an object with its own message.
func serverMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
