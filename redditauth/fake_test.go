package redditauth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gobeaver/reddit-kit/redditauth"
)

const (
	pathLogin    = "/api/login/alice"
	pathIdentity = "/api/me.json"
	pathAuthz    = "/api/v1/authorize"
	pathToken    = "/api/v1/access_token"

	testModhash = "HASH"
	tokenBody   = `{"access_token":"at-1","token_type":"bearer","expires_in":3600,"refresh_token":"rt-1","scope":"identity read"}`
)

// fakeReddit is an httptest server answering the four endpoints of the flow.
// Handlers can be replaced per test; every request is recorded.
type fakeReddit struct {
	srv *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	forms    map[string]url.Values
	headers  map[string]http.Header
	handlers map[string]http.HandlerFunc
}

func newFakeReddit(t *testing.T) *fakeReddit {
	t.Helper()

	f := &fakeReddit{
		hits:    make(map[string]int),
		forms:   make(map[string]url.Values),
		headers: make(map[string]http.Header),
	}
	f.handlers = map[string]http.HandlerFunc{
		pathLogin: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "reddit_session=abc123; Path=/; HttpOnly")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"json":{"errors":[],"data":{"need_https":true}}}`)
		},
		pathIdentity: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"kind":"t2","data":{"name":"alice","modhash":%q}}`, testModhash)
		},
		pathAuthz: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "https://app/oauth2/token?code=XYZ&state="+testModhash)
			w.WriteHeader(http.StatusFound)
		},
		pathToken: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, tokenBody)
		},
	}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.forms[r.URL.Path] = r.PostForm
		f.headers[r.URL.Path] = r.Header.Clone()
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeReddit) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeReddit) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeReddit) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

func (f *fakeReddit) form(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[path]
}

func (f *fakeReddit) header(path string) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[path]
}

// client returns a copy of the server's client so tests can change it freely.
func (f *fakeReddit) client() *http.Client {
	c := *f.srv.Client()
	return &c
}

func (f *fakeReddit) config() redditauth.Config {
	return redditauth.Config{
		Origin:         f.srv.URL,
		OAuthAppOrigin: "https://app",
		ClientID:       "cid",
		ClientSecret:   "csecret",
		UserAgent:      "test-agent/1.0",
		HTTPClient:     f.srv.Client(),
	}
}

// failingClient fails requests for one path with err and passes the rest to
// an *http.Client that honours RedirectsDisabled.
type failingClient struct {
	next *http.Client
	path string
	err  error
}

func newFailingClient(f *fakeReddit, path string, err error) *failingClient {
	next := f.client()
	next.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if redditauth.RedirectsDisabled(req.Context()) {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return &failingClient{next: next, path: path, err: err}
}

func (c *failingClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, c.path) {
		return nil, &url.Error{Op: req.Method, URL: req.URL.String(), Err: c.err}
	}
	return c.next.Do(req)
}

// timeoutErr mimics a dial or read timeout from net.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
