package redditauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

func (s *Service) refresh(ctx context.Context, logger log.FieldLogger, refreshToken string) (*TokenResponse, error) {
	if err := s.config.requireClient(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	return s.tokenRequest(ctx, logger, StageRefresh, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// tokenRequest posts form to the access_token endpoint with the app's Basic
// credentials. Reddit reports token-level failures as an "error" field in a
// 200 body, which is mapped to 401.
func (s *Service) tokenRequest(ctx context.Context, logger log.FieldLogger, stage Stage, form url.Values) (*TokenResponse, error) {
	resp, err := s.do(ctx, logger, request{
		stage:  stage,
		method: http.MethodPost,
		url:    s.config.Origin + "/api/v1/access_token",
		header: http.Header{"Authorization": {BasicAuth(s.config.ClientID, s.config.ClientSecret)}},
		form:   form,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &StatusError{Stage: stage, Status: resp.status, Body: resp.body}
	}
	if truthy(resp.body, "error") {
		return nil, &StatusError{Stage: stage, Status: http.StatusUnauthorized, Reason: "token endpoint reported an error", Body: resp.body}
	}

	return parseTokenResponse(resp.body, time.Now())
}

func parseTokenResponse(body []byte, issuedAt time.Time) (*TokenResponse, error) {
	tok := &TokenResponse{}
	if err := json.Unmarshal(body, tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	tok.Raw = append(json.RawMessage(nil), body...)
	tok.IssuedAt = issuedAt
	return tok, nil
}
