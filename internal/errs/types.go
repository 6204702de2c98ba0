package errs

import (
	"errors"
	"net/http"
	"strings"
)

// FieldError represents a field-level validation error.
//
//	{ "field": "email", "error": "must be a valid email address" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is a string-based enum describing what the client should do.
type ActionType string

const (
	// ActionTypeRetry tells the client to try again later.
	// Value holds the number of seconds to wait.
	ActionTypeRetry ActionType = "retry"
)

// Action describes an optional "what the client should do next" instruction.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the main error type of the API.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "NOT_FOUND").
//   - Message: human-friendly message.
//   - Status: HTTP status code the fault is answered with.
//   - Override: the message is safe to show as-is on the client.
//   - Errors: per-field validation errors.
//   - Action: optional client instruction.
//   - RetryAfter: seconds a rate-limited client should wait (429 only).
//   - Details: extra top-level fields merged into the response body.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	Errors []FieldError `json:"errors,omitempty"`
	Action *Action      `json:"action,omitempty"`

	RetryAfter int            `json:"-"`
	Details    map[string]any `json:"-"`
}

// Error returns the message so logging the error shows it.
func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports true for any *HTTPError target, regardless of its code.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)

	return ok
}

// WithMessage returns a copy of the error with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	clone := *e
	clone.Message = message

	return &clone
}

// WithDetails returns a copy of the error carrying extra body fields.
func (e *HTTPError) WithDetails(details map[string]any) *HTTPError {
	clone := *e
	clone.Details = details

	return &clone
}

// StatusOf returns the declared status of err, or 500 when err does not
// declare one.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status > 0 {
		return httpErr.Status
	}

	return http.StatusInternalServerError
}

// MakeUpperCaseWithUnderscores converts a string into UPPER_CASE_WITH_UNDERSCORES.
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}

func codeFor(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}
