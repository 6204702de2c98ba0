package errs

import (
	"fmt"
	"net/http"
	"strconv"
)

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     codeFor(http.StatusUnauthorized),
		Message:  message,
		Status:   http.StatusUnauthorized,
		Override: override,
	}
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     codeFor(http.StatusForbidden),
		Message:  message,
		Status:   http.StatusForbidden,
		Override: override,
	}
}

// NewForbiddenOriginError is raised by the CORS policy for an origin that is
// not on the allow-list.
func NewForbiddenOriginError(origin string) *HTTPError {
	return &HTTPError{
		Code:     "FORBIDDEN_ORIGIN",
		Message:  "CORS: Origin not allowed",
		Status:   http.StatusForbidden,
		Override: true,
		Details:  map[string]any{"origin": origin},
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// code overrides the default "BAD_REQUEST" code when non-nil. errors carries
// field-level validation failures.
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	formattedCode := codeFor(http.StatusBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
		Action:   action,
	}
}

// NewSuspiciousInputError is raised when the request matches an injection
// signature.
func NewSuspiciousInputError() *HTTPError {
	code := "SUSPICIOUS_INPUT"
	return NewBadRequestError("Invalid characters detected in request", true, &code, nil, nil)
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := codeFor(http.StatusNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewRouteNotFoundError is raised by the dispatcher when no route matches.
func NewRouteNotFoundError(method, path string) *HTTPError {
	code := "ROUTE_NOT_FOUND"
	return NewNotFoundError(fmt.Sprintf("Route not found: %s %s", method, path), true, &code)
}

// NewPayloadTooLargeError creates a 413 Request Entity Too Large HTTPError.
func NewPayloadTooLargeError() *HTTPError {
	return &HTTPError{
		Code:     "PAYLOAD_TOO_LARGE",
		Message:  "Request payload too large",
		Status:   http.StatusRequestEntityTooLarge,
		Override: true,
	}
}

// NewRateLimitedError creates a 429 Too Many Requests HTTPError. retryAfter is
// the window, in seconds, the client should wait.
func NewRateLimitedError(message string, retryAfter int) *HTTPError {
	return &HTTPError{
		Code:       codeFor(http.StatusTooManyRequests),
		Message:    message,
		Status:     http.StatusTooManyRequests,
		Override:   true,
		RetryAfter: retryAfter,
		Action: &Action{
			Type:    ActionTypeRetry,
			Message: "Too many requests. Please try again later.",
			Value:   strconv.Itoa(retryAfter),
		},
	}
}

// NewInvalidHandlerError is raised when a route references a controller or
// action that does not exist.
func NewInvalidHandlerError(message string) *HTTPError {
	return &HTTPError{
		Code:    "INVALID_HANDLER",
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
//
// The message is the generic status text, never the underlying fault.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:     codeFor(http.StatusInternalServerError),
		Message:  http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Override: false,
	}
}

// ValidationError converts a generic validation error into a 400 Bad Request HTTPError.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil, nil)
}
