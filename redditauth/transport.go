package redditauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// maxRedirects matches net/http's default policy.
const maxRedirects = 10

type request struct {
	stage      Stage
	method     string
	url        string
	form       url.Values
	header     http.Header
	noRedirect bool

	// pinned headers are set after the default headers and cannot be overridden.
	pinned http.Header
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do sends r and reads the whole body. Any response, whatever its status, is
// returned without error; only transport failures produce a *TransportError.
func (s *Service) do(ctx context.Context, logger log.FieldLogger, r request) (*response, error) {
	if err := s.wait(ctx); err != nil {
		return nil, s.transportError(r.stage, err)
	}

	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	if r.noRedirect {
		ctx = withoutRedirects(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("redditauth: %s: build request: %w", r.stage, err)
	}
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// Default headers override the step headers above, but not pinned ones.
	for k, v := range s.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, vs := range r.pinned {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		terr := s.transportError(r.stage, err)
		s.recordRequest(r.stage, 0, time.Since(start), terr)
		logger.WithFields(log.Fields{
			"stage":    r.stage,
			"timeout":  terr.Timeout,
			"duration": time.Since(start),
		}).Debugf("reddit request failed: %v", err)
		return nil, terr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		terr := s.transportError(r.stage, err)
		s.recordRequest(r.stage, resp.StatusCode, time.Since(start), terr)
		return nil, terr
	}

	s.recordRequest(r.stage, resp.StatusCode, time.Since(start), nil)
	entry := logger.WithFields(log.Fields{
		"stage":    r.stage,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})
	if resp.StatusCode >= 400 {
		entry.Debugf("reddit request rejected: %s", snippet(data))
	} else {
		entry.Debug("reddit request completed")
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := s.limiter.Wait(ctx); err != nil {
		// The limiter refuses up front when the wait would outlive the deadline.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordRateLimitWait(time.Since(start))
	}
	return nil
}

func (s *Service) transportError(stage Stage, err error) *TransportError {
	terr := &TransportError{Stage: stage, Err: err}
	if isTimeout(err) {
		terr.Timeout = true
		terr.Status = http.StatusGatewayTimeout
	}
	return terr
}

func (s *Service) recordRequest(stage Stage, status int, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequest(stage, status, d, err)
	}
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// withRedirectControl returns a copy of c that stops at the first redirect
// for requests marked with withoutRedirects.
func withRedirectControl(c *http.Client) *http.Client {
	clone := *c
	next := c.CheckRedirect
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if RedirectsDisabled(req.Context()) {
			return http.ErrUseLastResponse
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &clone
}

// truthy reports whether path holds a value that is present and not
// null, false, empty or zero.
func truthy(body []byte, path string) bool {
	r := gjson.GetBytes(body, path)
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return r.Exists()
	}
}

func snippet(body []byte) string {
	const n = 256
	if len(body) > n {
		return string(body[:n]) + "..."
	}
	return string(body)
}
