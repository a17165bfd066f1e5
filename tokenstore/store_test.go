package tokenstore_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/reddit-kit/krypto"
	"github.com/gobeaver/reddit-kit/redditauth"
	"github.com/gobeaver/reddit-kit/tokenstore"
	"github.com/gobeaver/reddit-kit/tokenstore/driver/memory"
)

// Cheap argon2id parameters keep sealed tests fast.
var fastKDF = &krypto.KDFParams{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func sampleToken() *redditauth.TokenResponse {
	return &redditauth.TokenResponse{
		AccessToken:  "at-secret-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "rt-secret-1",
		Scope:        "identity read",
		Raw:          []byte(`{"access_token":"at-secret-1","scope":"identity read","extra":true}`),
		IssuedAt:     time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func newMemoryStore(t *testing.T, cfg tokenstore.Config) (*tokenstore.Store, *memory.Store) {
	t.Helper()
	backend := memory.New(memory.Config{})
	s, err := tokenstore.NewWithBackend(backend, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, backend
}

func assertSameToken(t *testing.T, want, got *redditauth.TokenResponse) {
	t.Helper()
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.TokenType, got.TokenType)
	assert.Equal(t, want.ExpiresIn, got.ExpiresIn)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.Scope, got.Scope)
	assert.JSONEq(t, string(want.Raw), string(got.Raw))
	assert.True(t, want.IssuedAt.Equal(got.IssuedAt), "issued at %v, got %v", want.IssuedAt, got.IssuedAt)
	assert.True(t, want.Expiry().Equal(got.Expiry()))
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemoryStore(t, tokenstore.Config{})

	want := sampleToken()
	require.NoError(t, s.Save(ctx, "alice", want))

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assertSameToken(t, want, got)
	assert.Equal(t, "identity read", got.OAuth2Token().Extra("scope"))
}

func TestStoreSealed(t *testing.T) {
	ctx := context.Background()
	s, backend := newMemoryStore(t, tokenstore.Config{EncryptionKey: "correct horse", KDF: fastKDF})

	want := sampleToken()
	require.NoError(t, s.Save(ctx, "alice", want))

	stored, err := backend.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(stored, []byte("at-secret-1")), "access token stored in clear")
	assert.False(t, bytes.Contains(stored, []byte("rt-secret-1")), "refresh token stored in clear")

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assertSameToken(t, want, got)

	t.Run("wrong key", func(t *testing.T) {
		other, err := tokenstore.NewWithBackend(backend, tokenstore.Config{EncryptionKey: "battery staple", KDF: fastKDF})
		require.NoError(t, err)
		_, err = other.Load(ctx, "alice")
		assert.Error(t, err)
	})

	t.Run("no key", func(t *testing.T) {
		plain, err := tokenstore.NewWithBackend(backend, tokenstore.Config{})
		require.NoError(t, err)
		_, err = plain.Load(ctx, "alice")
		assert.ErrorIs(t, err, tokenstore.ErrSealed)
	})

	t.Run("record bound to account", func(t *testing.T) {
		require.NoError(t, backend.Set(ctx, "bob", stored, 0))
		_, err := s.Load(ctx, "bob")
		assert.Error(t, err)
	})
}

func TestStoreReadsPlainRecordsWithKey(t *testing.T) {
	ctx := context.Background()
	backend := memory.New(memory.Config{})
	defer backend.Close()

	plain, err := tokenstore.NewWithBackend(backend, tokenstore.Config{})
	require.NoError(t, err)
	require.NoError(t, plain.Save(ctx, "alice", sampleToken()))

	sealed, err := tokenstore.NewWithBackend(backend, tokenstore.Config{EncryptionKey: "k", KDF: fastKDF})
	require.NoError(t, err)
	got, err := sealed.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "at-secret-1", got.AccessToken)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, backend := newMemoryStore(t, tokenstore.Config{})

	_, err := s.Load(ctx, "nobody")
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	assert.ErrorIs(t, s.Save(ctx, "", sampleToken()), tokenstore.ErrNoAccount)
	assert.ErrorIs(t, s.Save(ctx, "alice", nil), tokenstore.ErrNoToken)
	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, tokenstore.ErrNoAccount)

	require.NoError(t, backend.Set(ctx, "garbage", []byte("not json"), 0))
	_, err = s.Load(ctx, "garbage")
	assert.ErrorIs(t, err, tokenstore.ErrCorrupt)

	require.NoError(t, backend.Set(ctx, "future", []byte(`{"v":99}`), 0))
	_, err = s.Load(ctx, "future")
	assert.ErrorIs(t, err, tokenstore.ErrCorrupt)

	require.NoError(t, s.Save(ctx, "alice", sampleToken()))
	require.NoError(t, s.Delete(ctx, "alice"))
	_, err = s.Load(ctx, "alice")
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestNewSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := tokenstore.New(tokenstore.Config{
		Driver:        "sqlite",
		Database:      filepath.Join(t.TempDir(), "tokens.db"),
		Table:         "reddit_tokens",
		KeyPrefix:     "reddit:token:",
		EncryptionKey: "passphrase",
		KDF:           fastKDF,
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	want := sampleToken()
	require.NoError(t, s.Save(ctx, "alice", want))
	want.AccessToken = "at-secret-2"
	require.NoError(t, s.Save(ctx, "alice", want))

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assertSameToken(t, want, got)
}

func TestNewInvalidDriver(t *testing.T) {
	_, err := tokenstore.New(tokenstore.Config{Driver: "etcd"})
	assert.ErrorIs(t, err, tokenstore.ErrInvalidDriver)
}

func TestTokenSourceSavesRefreshedToken(t *testing.T) {
	ctx := context.Background()

	var refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/access_token" {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-secret-1", r.PostForm.Get("refresh_token"))
		refreshes++
		fmt.Fprint(w, `{"access_token":"at-new","token_type":"bearer","expires_in":3600,"scope":"identity read"}`)
	}))
	defer srv.Close()

	svc, err := redditauth.New(redditauth.Config{
		Origin:       srv.URL,
		ClientID:     "cid",
		ClientSecret: "csecret",
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)

	s, _ := newMemoryStore(t, tokenstore.Config{})
	expired := sampleToken()
	expired.IssuedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.Save(ctx, "alice", expired))

	src, err := s.TokenSource(ctx, svc, "alice")
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, 1, refreshes)

	saved, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "at-new", saved.AccessToken)
	assert.Equal(t, "rt-secret-1", saved.RefreshToken, "refresh token carried forward")
	assert.False(t, saved.IsExpired())

	_, err = s.TokenSource(ctx, svc, "bob")
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestGlobalStore(t *testing.T) {
	tokenstore.Reset()
	t.Cleanup(tokenstore.Reset)

	ctx := context.Background()
	assert.ErrorIs(t, tokenstore.Save(ctx, "alice", sampleToken()), tokenstore.ErrNotInitialized)

	t.Setenv("TSTEST_TOKENSTORE_DRIVER", "memory")
	t.Setenv("TSTEST_TOKENSTORE_MAX_KEYS", "10")
	require.NoError(t, tokenstore.WithPrefix("TSTEST_").Init())
	require.NotNil(t, tokenstore.Default())

	require.NoError(t, tokenstore.Save(ctx, "alice", sampleToken()))
	got, err := tokenstore.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "at-secret-1", got.AccessToken)
}

func TestGetConfigDefaults(t *testing.T) {
	cfg, err := tokenstore.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Driver)
	assert.Equal(t, "reddit_tokens", cfg.Table)
	assert.Equal(t, "reddit:token:", cfg.KeyPrefix)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Zero(t, cfg.TTL)
}
