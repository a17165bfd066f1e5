package redditauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshHook is called with every token obtained through a TokenSource,
// typically to persist it. An error fails the Token call.
type RefreshHook func(ctx context.Context, tok *TokenResponse) error

// TokenSource returns an oauth2.TokenSource that serves tok until it expires
// and then renews it with RefreshToken. Reddit omits refresh_token on refresh
// responses, so the previous one is carried forward.
func (s *Service) TokenSource(ctx context.Context, tok *TokenResponse, onRefresh RefreshHook) oauth2.TokenSource {
	r := &refresher{ctx: ctx, svc: s, onRefresh: onRefresh}
	if tok != nil {
		r.refreshToken = tok.RefreshToken
	}
	return oauth2.ReuseTokenSource(tok.OAuth2Token(), r)
}

type refresher struct {
	ctx       context.Context
	svc       *Service
	onRefresh RefreshHook

	mu           sync.Mutex
	refreshToken string
}

func (r *refresher) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, err := r.svc.RefreshToken(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = r.refreshToken
	} else {
		r.refreshToken = tok.RefreshToken
	}

	if r.onRefresh != nil {
		if err := r.onRefresh(r.ctx, tok); err != nil {
			return nil, fmt.Errorf("redditauth: refresh hook: %w", err)
		}
	}
	return tok.OAuth2Token(), nil
}

// Client returns an HTTP client that authenticates requests with tokens from
// src and sends the configured User-Agent and default headers.
func (s *Service) Client(ctx context.Context, src oauth2.TokenSource) *http.Client {
	base := http.DefaultTransport
	if hc, ok := s.client.(*http.Client); ok && hc.Transport != nil {
		base = hc.Transport
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Transport: &headerTransport{base: base, userAgent: s.config.UserAgent, headers: s.config.DefaultHeaders},
		Timeout:   s.config.HTTPTimeout,
	})
	return oauth2.NewClient(ctx, src)
}

type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
