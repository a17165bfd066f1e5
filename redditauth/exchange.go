package redditauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

func (s *Service) convertCookies(ctx context.Context, logger log.FieldLogger, cookies []string) (*Outcome, error) {
	if len(cookies) == 0 {
		return nil, ErrNoCookies
	}
	if err := s.config.requireApp(); err != nil {
		return nil, err
	}

	cookieHeader := strings.Join(cookies, "; ")

	modhash, err := s.fetchModhash(ctx, logger, cookieHeader)
	if err != nil {
		return nil, err
	}

	code, status, err := s.authorize(ctx, logger, cookieHeader, modhash)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		logger.WithField("status", status).Debug("authorize did not redirect")
		return &Outcome{Status: status}, nil
	}

	tok, err := s.exchangeCode(ctx, logger, code)
	if err != nil {
		return nil, err
	}
	return &Outcome{Token: tok}, nil
}

func (s *Service) redirectURI() string {
	return strings.TrimRight(s.config.OAuthAppOrigin, "/") + "/oauth2/token"
}

// fetchModhash asks the identity endpoint who the session belongs to.
func (s *Service) fetchModhash(ctx context.Context, logger log.FieldLogger, cookieHeader string) (string, error) {
	resp, err := s.do(ctx, logger, request{
		stage:  StageIdentity,
		method: http.MethodGet,
		url:    s.config.Origin + "/api/me.json",
		header: http.Header{"Cookie": {cookieHeader}},
	})
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", &StatusError{Stage: StageIdentity, Status: resp.status, Body: resp.body}
	}
	if truthy(resp.body, "error") || !truthy(resp.body, "data") {
		return "", &StatusError{Stage: StageIdentity, Status: http.StatusUnauthorized, Reason: "session not recognised", Body: resp.body}
	}
	return gjson.GetBytes(resp.body, "data.modhash").String(), nil
}

// authorize grants the app access on behalf of the session. It returns
// either the authorization code, or a non-zero status when reddit answered
// without a usable redirect.
func (s *Service) authorize(ctx context.Context, logger log.FieldLogger, cookieHeader, modhash string) (string, int, error) {
	resp, err := s.do(ctx, logger, request{
		stage:  StageAuthorize,
		method: http.MethodPost,
		url:    s.config.Origin + "/api/v1/authorize",
		header: http.Header{"Cookie": {cookieHeader}},
		pinned: http.Header{"X-Modhash": {modhash}},
		form: url.Values{
			"client_id":    {s.config.ClientID},
			"redirect_uri": {s.redirectURI()},
			"scope":        {Scopes},
			"state":        {modhash},
			"duration":     {"permanent"},
			"authorize":    {"yes"},
		},
		noRedirect: true,
	})
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) && !terr.Timeout && !errors.Is(err, context.Canceled) {
			return "", http.StatusInternalServerError, nil
		}
		return "", 0, err
	}

	if resp.status != http.StatusFound {
		return "", resp.status, nil
	}
	if truthy(resp.body, "error") {
		return "", http.StatusUnauthorized, nil
	}

	loc, err := url.Parse(resp.header.Get("Location"))
	if err != nil {
		return "", 0, &StatusError{Stage: StageAuthorize, Status: http.StatusUnauthorized, Reason: "unreadable redirect location"}
	}
	query := loc.Query()
	code := query.Get("code")
	if code == "" {
		return "", 0, &StatusError{Stage: StageAuthorize, Status: http.StatusUnauthorized, Reason: "redirect carries no authorization code"}
	}
	if query.Get("state") != modhash {
		return "", 0, &StatusError{Stage: StageAuthorize, Status: http.StatusUnauthorized, Reason: "redirect state does not match modhash"}
	}
	return code, 0, nil
}

func (s *Service) exchangeCode(ctx context.Context, logger log.FieldLogger, code string) (*TokenResponse, error) {
	return s.tokenRequest(ctx, logger, StageCodeExchange, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.redirectURI()},
	})
}
