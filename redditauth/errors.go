package redditauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Package-level errors
var (
	// ErrInvalidConfig is wrapped by every *ConfigError
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoCookies is returned by ConvertCookiesToAuthToken when called without cookies.
	// The message is kept verbatim for callers that match on it.
	ErrNoCookies = errors.New("No cookies passed in")

	// ErrInvalidLogin indicates the login response carried no reddit_session cookie
	ErrInvalidLogin = errors.New("Invalid login information.")

	// ErrNoRefreshToken indicates RefreshToken was called with an empty token
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrInvalidResponse indicates a 2xx token response that was not a JSON object
	ErrInvalidResponse = errors.New("invalid response from reddit")
)

// Messages used for missing OAuth app settings.
const (
	msgMissingAppOrigin    = "Please set up a Reddit Oauth App, and pass in its URL as oauthAppOrigin to config."
	msgMissingClientID     = "Please set up a Reddit Oauth App, and pass in its id as clientId to config."
	msgMissingClientSecret = "Please set up a Reddit Oauth App, and pass in its secret as clientSecret to config."
)

// ConfigError reports a missing or malformed option. It is always returned
// before any request is sent.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrInvalidConfig) match.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// TransportError means the request never produced a response: DNS failure,
// connection reset, cancellation or timeout. Timeouts carry Status 504.
type TransportError struct {
	Stage   Stage
	Status  int
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("redditauth: %s: request timed out (%d): %v", e.Stage, e.Status, e.Err)
	}
	return fmt.Sprintf("redditauth: %s: request failed: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError means reddit answered but signalled failure, either with a
// non-2xx status or in-band (an "error" field in a 2xx body, missing fields,
// an untrusted redirect). Status is deliberately coarse; 401 means the caller
// should authenticate again.
type StatusError struct {
	Stage  Stage
	Status int
	Reason string
	Body   []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("redditauth: %s: status %d", e.Stage, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// LoginErrors is the legacy login error list, e.g.
// [["WRONG_PASSWORD", "wrong password", "passwd"]], surfaced as sent.
type LoginErrors struct {
	Errors [][]string
	Raw    []byte
}

func (e *LoginErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		parts = append(parts, strings.Join(entry, ": "))
	}
	return "redditauth: login rejected: " + strings.Join(parts, "; ")
}

// Codes returns the first element of every error entry.
func (e *LoginErrors) Codes() []string {
	codes := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		if len(entry) > 0 {
			codes = append(codes, entry[0])
		}
	}
	return codes
}

// StatusCode returns the HTTP-style status carried by err, or 0 if it carries none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Status
	}
	return 0
}

// IsReauthenticate reports whether err means the credentials or session are
// no longer usable and the user has to log in again.
func IsReauthenticate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidLogin) || errors.Is(err, ErrNoRefreshToken) {
		return true
	}
	var loginErrs *LoginErrors
	if errors.As(err, &loginErrs) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden
	}
	return false
}

// IsRetryable reports whether err is worth retrying later. The package never
// retries on its own.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500 || statusErr.Status == http.StatusTooManyRequests
	}
	return false
}
