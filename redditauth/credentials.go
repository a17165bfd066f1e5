package redditauth

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// sessionMarker is the cookie reddit sets on a successful legacy login.
const sessionMarker = "reddit_session"

// BasicAuth returns the Authorization header value for the app credentials.
func BasicAuth(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// ExtractCookies returns the name=value part of every Set-Cookie header in h,
// in order, with attributes dropped.
func ExtractCookies(h http.Header) []string {
	raw := h.Values("Set-Cookie")
	cookies := make([]string, 0, len(raw))
	for _, v := range raw {
		pair, _, _ := strings.Cut(v, ";")
		if pair = strings.TrimSpace(pair); pair != "" {
			cookies = append(cookies, pair)
		}
	}
	return cookies
}

// HasSession reports whether any of the raw Set-Cookie values mentions the
// reddit session cookie.
func HasSession(setCookies []string) bool {
	return strings.Contains(strings.Join(setCookies, ""), sessionMarker)
}
