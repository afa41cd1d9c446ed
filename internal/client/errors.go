package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/raphaelgruber/girs/internal/errors"
)

// DefaultErrorMessage is shown when the server gives no usable message.
const DefaultErrorMessage = "Something went wrong. Please try again."

// APIError is a non-2xx response. Error() returns the message meant for the
// end user; errors.Is matches the taxonomy sentinel the status maps to.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the taxonomy sentinel (errors.ErrUnauthorized, ...), if any.
func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Message:    ErrorMessage(body, DefaultErrorMessage),
		kind:       kindForStatus(status),
	}
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.ErrValidation
	default:
		return nil
	}
}

// reclassify maps an *APIError with one of statuses to kind. Endpoints use it
// where a status means something specific, e.g. 401 on login is a rejected
// password rather than an expired session.
func reclassify(err error, kind error, statuses ...int) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	for _, s := range statuses {
		if apiErr.StatusCode == s {
			apiErr.kind = kind
			break
		}
	}
	return err
}

// ErrorMessage extracts the user-facing message from an error body: the
// "message" field (first element when it is an array), else "error", else
// fallback.
func ErrorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	switch msg := payload["message"].(type) {
	case string:
		if s := strings.TrimSpace(msg); s != "" {
			return s
		}
	case []any:
		if len(msg) > 0 {
			if s, ok := msg[0].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	if s, ok := payload["error"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

// UserMessage returns the text to show an end user for err: the normalized
// server message of an *APIError, a fixed sentence for network failures, or
// err's own text otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, apperrors.ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	default:
		return err.Error()
	}
}
