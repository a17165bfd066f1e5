// Package redditauth obtains reddit OAuth tokens for a user from a username
// and password, or from an existing browser session.
//
// The flow bridges reddit's legacy cookie login into the OAuth authorization
// code grant:
//   - POST /api/login/{user} establishes a reddit_session cookie
//   - GET /api/me.json returns the session's modhash
//   - POST /api/v1/authorize grants the app access and redirects with a code
//   - POST /api/v1/access_token trades the code for an access/refresh token pair
//
// Refreshing calls the token endpoint directly. The package never retries,
// never caches tokens and never logs secrets.
//
// # Quick Start
//
//	import "github.com/gobeaver/reddit-kit/redditauth"
//
//	// Initialize from REDDIT_* environment variables
//	if err := redditauth.Init(); err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome, err := redditauth.Default().Login(ctx, "user", "hunter2")
//	if err != nil {
//	    if redditauth.IsReauthenticate(err) {
//	        // bad credentials or expired session
//	    }
//	    log.Fatal(err)
//	}
//	if !outcome.Authorized() {
//	    // reddit answered the authorize step without redirecting
//	    log.Printf("authorize returned %d", outcome.Status)
//	}
//
// # Configuration
//
// Environment variables (default prefix REDDIT_):
//
//	REDDIT_ORIGIN            legacy API host (default https://www.reddit.com)
//	REDDIT_OAUTH_APP_ORIGIN  registered app origin; redirect is {origin}/oauth2/token
//	REDDIT_CLIENT_ID         app client id
//	REDDIT_CLIENT_SECRET     app client secret
//	REDDIT_USER_AGENT        User-Agent for every request
//	REDDIT_DEFAULT_HEADERS   extra headers, "Name=value,Other=value"
//	REDDIT_HTTP_TIMEOUT      per-request timeout (default 30s)
//	REDDIT_RATE_LIMIT        requests per second, 0 disables
//	REDDIT_RATE_BURST        limiter burst (default 1)
//	REDDIT_DEBUG             debug logging
//
// # Errors
//
// Failures are typed: *ConfigError before any request, *TransportError when no
// response arrived (timeouts carry status 504), *StatusError when reddit
// answered but refused, *LoginErrors for the legacy login error list. Use
// StatusCode, IsReauthenticate and IsRetryable rather than inspecting types.
//
// # Keeping tokens fresh
//
//	src := svc.TokenSource(ctx, outcome.Token, func(ctx context.Context, tok *redditauth.TokenResponse) error {
//	    return store.Save(ctx, "alice", tok)
//	})
//	api := svc.Client(ctx, src)
//	resp, err := api.Get("https://oauth.reddit.com/api/v1/me")
package redditauth
