package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/gobeaver/reddit-kit/krypto"
	"github.com/gobeaver/reddit-kit/redditauth"
	"github.com/gobeaver/reddit-kit/tokenstore/driver"
)

// Global instances
var (
	defaultStore *Store
	defaultOnce  sync.Once
	defaultErr   error
)

// Common errors
var (
	ErrNotInitialized = errors.New("tokenstore: not initialized")
	ErrInvalidDriver  = errors.New("tokenstore: invalid driver")
	ErrNotFound       = driver.ErrNotFound
	ErrNoAccount      = errors.New("tokenstore: account must not be empty")
	ErrNoToken        = errors.New("tokenstore: token must not be nil")

	// ErrSealed is returned when an encrypted record is loaded by a store
	// without an encryption key.
	ErrSealed = errors.New("tokenstore: record is encrypted and no encryption key is configured")

	// ErrCorrupt is returned for records that cannot be decoded.
	ErrCorrupt = errors.New("tokenstore: corrupt record")
)

const recordVersion = 1

// envelope is the stored form. Exactly one of Record and Sealed is set;
// Sealed holds an encrypted record.
type envelope struct {
	Version int     `json:"v"`
	Record  *record `json:"record,omitempty"`
	Sealed  []byte  `json:"sealed,omitempty"`
}

type record struct {
	AccessToken   string    `json:"access_token"`
	TokenType     string    `json:"token_type"`
	ExpiresIn     int       `json:"expires_in"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	Scope         string    `json:"scope,omitempty"`
	Raw           []byte    `json:"raw,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	ScopesVersion int       `json:"scopes_version"`
	SavedAt       time.Time `json:"saved_at"`
}

// Store persists reddit tokens per account on a backend.
type Store struct {
	backend driver.Backend
	sealer  krypto.Sealer
	ttl     time.Duration
	logger  log.FieldLogger
}

// Init initializes the global store with optional config
func Init(configs ...Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = &configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultStore, defaultErr = New(*cfg)
	})

	return defaultErr
}

// New opens the configured backend
func New(cfg Config) (*Store, error) {
	var (
		backend driver.Backend
		err     error
	)

	switch cfg.Driver {
	case "", "memory":
		backend, err = memoryRegister(cfg)
	case "redis":
		backend, err = redisRegister(cfg)
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql", "libsql", "turso":
		backend, err = databaseRegister(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	s, err := NewWithBackend(backend, cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// NewWithBackend builds a store on an existing backend. Only the encryption,
// TTL and logging settings of cfg are used.
func NewWithBackend(backend driver.Backend, cfg Config) (*Store, error) {
	s := &Store{backend: backend, ttl: cfg.TTL, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = log.StandardLogger()
	}

	if cfg.EncryptionKey != "" {
		params := krypto.DefaultKDFParams
		if cfg.KDF != nil {
			params = *cfg.KDF
		}
		sealer, err := krypto.NewPassphraseSealer(cfg.EncryptionKey, params)
		if err != nil {
			return nil, fmt.Errorf("tokenstore: %w", err)
		}
		s.sealer = sealer
	}
	return s, nil
}

// Save stores tok for account, replacing any previous token.
func (s *Store) Save(ctx context.Context, account string, tok *redditauth.TokenResponse) error {
	if account == "" {
		return ErrNoAccount
	}
	if tok == nil {
		return ErrNoToken
	}

	rec := record{
		AccessToken:   tok.AccessToken,
		TokenType:     tok.TokenType,
		ExpiresIn:     tok.ExpiresIn,
		RefreshToken:  tok.RefreshToken,
		Scope:         tok.Scope,
		Raw:           tok.Raw,
		IssuedAt:      tok.IssuedAt,
		ScopesVersion: redditauth.ScopesVersion,
		SavedAt:       time.Now().UTC(),
	}

	env := envelope{Version: recordVersion}
	if s.sealer == nil {
		env.Record = &rec
	} else {
		plain, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		env.Sealed, err = s.sealer.Seal(plain, []byte(account))
		if err != nil {
			return fmt.Errorf("tokenstore: seal: %w", err)
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, account, data, s.ttl); err != nil {
		return fmt.Errorf("tokenstore: save %s: %w", account, err)
	}

	s.logger.WithFields(log.Fields{
		"account": account,
		"sealed":  s.sealer != nil,
	}).Debug("token saved")
	return nil
}

// Load returns the token saved for account, or ErrNotFound.
func (s *Store) Load(ctx context.Context, account string) (*redditauth.TokenResponse, error) {
	if account == "" {
		return nil, ErrNoAccount
	}

	data, err := s.backend.Get(ctx, account)
	if err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("tokenstore: load %s: %w", account, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}

	rec := env.Record
	if env.Sealed != nil {
		if s.sealer == nil {
			return nil, ErrSealed
		}
		plain, err := s.sealer.Open(env.Sealed, []byte(account))
		if err != nil {
			return nil, fmt.Errorf("tokenstore: open %s: %w", account, err)
		}
		rec = &record{}
		if err := json.Unmarshal(plain, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: empty record", ErrCorrupt)
	}

	if rec.ScopesVersion != redditauth.ScopesVersion {
		s.logger.WithFields(log.Fields{
			"account":        account,
			"scopes_version": rec.ScopesVersion,
		}).Warn("stored token was granted an older scope set")
	}

	return &redditauth.TokenResponse{
		AccessToken:  rec.AccessToken,
		TokenType:    rec.TokenType,
		ExpiresIn:    rec.ExpiresIn,
		RefreshToken: rec.RefreshToken,
		Scope:        rec.Scope,
		Raw:          rec.Raw,
		IssuedAt:     rec.IssuedAt,
	}, nil
}

// Delete removes the token saved for account. Deleting a missing account is
// not an error.
func (s *Store) Delete(ctx context.Context, account string) error {
	if account == "" {
		return ErrNoAccount
	}
	return s.backend.Delete(ctx, account)
}

// Hook returns a refresh hook that saves every renewed token under account.
func (s *Store) Hook(account string) redditauth.RefreshHook {
	return func(ctx context.Context, tok *redditauth.TokenResponse) error {
		return s.Save(ctx, account, tok)
	}
}

// TokenSource loads the token saved for account and returns a source that
// refreshes it through svc, saving each renewed token back.
func (s *Store) TokenSource(ctx context.Context, svc *redditauth.Service, account string) (oauth2.TokenSource, error) {
	tok, err := s.Load(ctx, account)
	if err != nil {
		return nil, err
	}
	return svc.TokenSource(ctx, tok, s.Hook(account)), nil
}

// Ping checks that the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// Default returns the global store
func Default() *Store {
	if defaultStore == nil {
		_ = Init()
	}
	return defaultStore
}

// Save stores a token with the global store
func Save(ctx context.Context, account string, tok *redditauth.TokenResponse) error {
	if defaultStore == nil {
		return ErrNotInitialized
	}
	return defaultStore.Save(ctx, account, tok)
}

// Load reads a token from the global store
func Load(ctx context.Context, account string) (*redditauth.TokenResponse, error) {
	if defaultStore == nil {
		return nil, ErrNotInitialized
	}
	return defaultStore.Load(ctx, account)
}

// Reset clears the global instance (for testing)
func Reset() {
	if defaultStore != nil {
		defaultStore.Close()
	}
	defaultStore = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
