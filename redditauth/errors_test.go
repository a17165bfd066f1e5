package redditauth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gobeaver/reddit-kit/redditauth"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		reauth    bool
		retryable bool
	}{
		{name: "nil", err: nil},
		{name: "config", err: &redditauth.ConfigError{Field: "ClientID", Message: "missing"}},
		{name: "invalid login", err: redditauth.ErrInvalidLogin, reauth: true},
		{name: "no refresh token", err: redditauth.ErrNoRefreshToken, reauth: true},
		{name: "login errors", err: &redditauth.LoginErrors{Errors: [][]string{{"WRONG_PASSWORD"}}}, reauth: true},
		{name: "unauthorized", err: &redditauth.StatusError{Status: http.StatusUnauthorized}, status: 401, reauth: true},
		{name: "forbidden", err: &redditauth.StatusError{Status: http.StatusForbidden}, status: 403, reauth: true},
		{name: "too many requests", err: &redditauth.StatusError{Status: http.StatusTooManyRequests}, status: 429, retryable: true},
		{name: "bad gateway", err: &redditauth.StatusError{Status: http.StatusBadGateway}, status: 502, retryable: true},
		{name: "not found", err: &redditauth.StatusError{Status: http.StatusNotFound}, status: 404},
		{name: "timeout", err: &redditauth.TransportError{Status: 504, Timeout: true, Err: context.DeadlineExceeded}, status: 504, retryable: true},
		{name: "connection reset", err: &redditauth.TransportError{Err: errors.New("reset")}, retryable: true},
		{name: "wrapped status", err: fmt.Errorf("sync account: %w", &redditauth.StatusError{Status: 401}), status: 401, reauth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, redditauth.StatusCode(tt.err))
			assert.Equal(t, tt.reauth, redditauth.IsReauthenticate(tt.err))
			assert.Equal(t, tt.retryable, redditauth.IsRetryable(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	statusErr := &redditauth.StatusError{Stage: redditauth.StageAuthorize, Status: 401, Reason: "redirect state does not match modhash"}
	assert.Equal(t, "redditauth: authorize: status 401: redirect state does not match modhash", statusErr.Error())

	transportErr := &redditauth.TransportError{Stage: redditauth.StageRefresh, Status: 504, Timeout: true, Err: context.DeadlineExceeded}
	assert.Equal(t, "redditauth: refresh: request timed out (504): context deadline exceeded", transportErr.Error())

	loginErrs := &redditauth.LoginErrors{Errors: [][]string{
		{"WRONG_PASSWORD", "bad password", "passwd"},
		{"RATELIMIT", "you are doing that too much", "ratelimit"},
	}}
	assert.Equal(t, "redditauth: login rejected: WRONG_PASSWORD: bad password: passwd; RATELIMIT: you are doing that too much: ratelimit", loginErrs.Error())
	assert.Equal(t, []string{"WRONG_PASSWORD", "RATELIMIT"}, loginErrs.Codes())
}
