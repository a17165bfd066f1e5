package redditauth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Stage names one HTTP exchange of the flow.
type Stage string

const (
	StageLogin        Stage = "login"
	StageIdentity     Stage = "identity"
	StageAuthorize    Stage = "authorize"
	StageCodeExchange Stage = "code_exchange"
	StageRefresh      Stage = "refresh"
)

// HTTPClient is the transport used for every request. *http.Client satisfies it.
//
// The authorize step must see the redirect response itself. When the client is an
// *http.Client this package installs its own redirect policy; other implementations
// must stop following redirects for requests whose context reports
// RedirectsDisabled.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type noRedirectKey struct{}

func withoutRedirects(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRedirectKey{}, true)
}

// RedirectsDisabled reports whether the request carrying ctx must not follow redirects.
func RedirectsDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noRedirectKey{}).(bool)
	return v
}

// TokenResponse is the access_token endpoint's JSON body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// Raw is the response body exactly as received.
	Raw json.RawMessage `json:"-"`
	// IssuedAt is when the response was received.
	IssuedAt time.Time `json:"-"`
}

// Expiry returns when the access token stops being valid, or the zero time if
// the response carried no lifetime.
func (t *TokenResponse) Expiry() time.Time {
	if t == nil || t.ExpiresIn <= 0 || t.IssuedAt.IsZero() {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired checks if the access token has expired
func (t *TokenResponse) IsExpired() bool {
	exp := t.Expiry()
	if exp.IsZero() {
		return false
	}
	return time.Now().After(exp)
}

// OAuth2Token converts the response for use with golang.org/x/oauth2. All raw
// fields are available through Extra.
func (t *TokenResponse) OAuth2Token() *oauth2.Token {
	if t == nil {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry(),
	}
	var extra map[string]interface{}
	if len(t.Raw) > 0 && json.Unmarshal(t.Raw, &extra) == nil {
		tok = tok.WithExtra(extra)
	}
	return tok
}

// Outcome is the result of the cookie exchange, and therefore of Login.
// Exactly one of Token or Status is set: Status is non-zero when the
// authorize step answered without redirecting, which is reported as a value
// rather than an error.
type Outcome struct {
	Token  *TokenResponse
	Status int
}

// Authorized reports whether the outcome carries a token.
func (o *Outcome) Authorized() bool {
	return o != nil && o.Token != nil
}
