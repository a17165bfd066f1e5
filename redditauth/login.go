package redditauth

import (
	"context"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

func (s *Service) login(ctx context.Context, logger log.FieldLogger, username, password string) (*Outcome, error) {
	if err := s.config.requireApp(); err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, logger, request{
		stage:  StageLogin,
		method: http.MethodPost,
		url:    s.config.Origin + "/api/login/" + url.PathEscape(username),
		form: url.Values{
			"user":     {username},
			"passwd":   {password},
			"api_type": {"json"},
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &StatusError{Stage: StageLogin, Status: resp.status, Body: resp.body}
	}

	if errs := loginErrors(resp.body); errs != nil {
		return nil, errs
	}

	if !HasSession(resp.header.Values("Set-Cookie")) {
		return nil, ErrInvalidLogin
	}
	cookies := ExtractCookies(resp.header)
	logger.WithField("cookies", len(cookies)).Debug("legacy session established")

	return s.convertCookies(ctx, logger, cookies)
}

// loginErrors returns the json.errors list of a legacy login body, or nil
// when it is absent or empty.
func loginErrors(body []byte) *LoginErrors {
	list := gjson.GetBytes(body, "json.errors")
	if !list.IsArray() || len(list.Array()) == 0 {
		return nil
	}

	errs := &LoginErrors{Raw: []byte(list.Raw)}
	for _, entry := range list.Array() {
		if !entry.IsArray() {
			errs.Errors = append(errs.Errors, []string{entry.String()})
			continue
		}
		fields := make([]string, 0, 3)
		for _, f := range entry.Array() {
			fields = append(fields, f.String())
		}
		errs.Errors = append(errs.Errors, fields)
	}
	return errs
}
