package remote

import (
	"errors"
	"fmt"
	"net/http"
)

const unknownMessage = "Unknown error"

// Well-known service error codes.
const (
	CodeCannotUseAsTemplate int64 = 40118
	CodeInvalidQueryParam   int64 = 40012400128
	CodeRateLimit           int64 = 400123
	CodeUnauthorized        int64 = 40102
	CodeAudioFailed         int64 = 40056
	CodeSessionStateNew     int64 = 10001
	CodeSessionStateConnect int64 = 10002
	CodeSessionStateLive    int64 = 10003
	CodeSessionStateClosing int64 = 10004
	CodeSessionStateClosed  int64 = 10005
	CodeSessionNotFound     int64 = 10006
	CodeConcurrentLimit     int64 = 10007
	CodeAvatarNotFound      int64 = 10012
	CodeAvatarNotAllowed    int64 = 10013
	CodeSessionFull         int64 = 10014
	CodeTrialLimit          int64 = 10015
)

// knownMessages override whatever the server sends for these codes; its
// message field is missing or misleading for several of them.
var knownMessages = map[int64]string{
	CodeCannotUseAsTemplate: "Cannot use as a template",
	CodeInvalidQueryParam:   "Invalid querying parameter",
	CodeRateLimit:           "Exceed rate limit",
	CodeUnauthorized:        "Unauthorized",
	CodeAudioFailed:         "Failed to generate audio",
	CodeSessionStateNew:     "Session state wrong: new",
	CodeSessionStateConnect: "Session state wrong: connecting",
	CodeSessionStateLive:    "Session state wrong: connected",
	CodeSessionStateClosing: "Session state wrong: closing",
	CodeSessionStateClosed:  "Session state wrong: closed",
	CodeSessionNotFound:     "Session not found",
	CodeConcurrentLimit:     "Concurrent limit reached",
	CodeAvatarNotFound:      "Avatar not found",
	CodeAvatarNotAllowed:    "Avatar not allowed",
	CodeSessionFull:         "Session full",
	CodeTrialLimit:          "Trial API limit reached",
}

// KnownMessage returns the fixed message for a well-known code.
func KnownMessage(code int64) (string, bool) {
	msg, ok := knownMessages[code]
	return msg, ok
}

// Error is a classified failure returned by the service.
type Error struct {
	// Code is the service error code, zero when the body carried none.
	Code int64

	Message string

	HTTPStatus int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) IsRateLimit() bool {
	return e.Code == CodeRateLimit || e.HTTPStatus == http.StatusTooManyRequests
}

func (e *Error) IsUnauthorized() bool {
	return e.Code == CodeUnauthorized || e.HTTPStatus == http.StatusUnauthorized
}

// IsSessionState reports a session-state conflict (10001..10005).
func (e *Error) IsSessionState() bool {
	return e.Code >= CodeSessionStateNew && e.Code <= CodeSessionStateClosed
}

func (e *Error) IsServerError() bool {
	return e.HTTPStatus >= 500
}

func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func newError(status int, code int64, serverMsg string) *Error {
	msg, ok := knownMessages[code]
	if !ok {
		msg = serverMsg
	}
	if msg == "" {
		msg = unknownMessage
	}
	return &Error{Code: code, Message: msg, HTTPStatus: status}
}

func statusError(status int) *Error {
	return &Error{
		HTTPStatus: status,
		Message:    fmt.Sprintf("Request failed with status %d", status),
	}
}
