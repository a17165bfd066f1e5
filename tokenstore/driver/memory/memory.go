package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/reddit-kit/tokenstore/driver"
)

// ErrMaxKeys is returned by Set when the store is full.
var ErrMaxKeys = errors.New("tokenstore: max keys limit reached")

// item represents a stored value with expiration
type item struct {
	value      []byte
	expiration int64
}

// Store implements an in-memory backend
type Store struct {
	mu          sync.RWMutex
	items       map[string]*item
	maxKeys     int
	keyPrefix   string
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// Config holds memory backend configuration
type Config struct {
	MaxKeys         int
	CleanupInterval time.Duration
	KeyPrefix       string
}

var _ driver.Backend = (*Store)(nil)

// New creates a new memory backend
func New(cfg Config) *Store {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	s := &Store{
		items:       make(map[string]*item),
		maxKeys:     cfg.MaxKeys,
		keyPrefix:   cfg.KeyPrefix,
		stopCleanup: make(chan struct{}),
	}

	go s.cleanupExpired(cfg.CleanupInterval)

	return s
}

// Get retrieves a value by key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[s.keyPrefix+key]
	if !ok || it.expired(time.Now().UnixNano()) {
		return nil, driver.ErrNotFound
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a value with optional TTL
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullKey := s.keyPrefix + key
	if s.maxKeys > 0 && len(s.items) >= s.maxKeys {
		if _, exists := s.items[fullKey]; !exists {
			return ErrMaxKeys
		}
	}

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	s.items[fullKey] = &item{
		value:      append([]byte(nil), value...),
		expiration: expiration,
	}
	return nil
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, s.keyPrefix+key)
	return nil
}

// Len returns the number of live keys under the prefix.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UnixNano()
	n := 0
	for k, it := range s.items {
		if strings.HasPrefix(k, s.keyPrefix) && !it.expired(now) {
			n++
		}
	}
	return n
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *Store) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixNano()
			s.mu.Lock()
			for k, it := range s.items {
				if it.expired(now) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}

func (it *item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}
