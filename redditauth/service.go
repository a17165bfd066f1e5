package redditauth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gobeaver/reddit-kit/config"
)

// Global instance management
var (
	defaultService *Service
	defaultOnce    sync.Once
	defaultErr     error
)

// Operation names passed to MetricsCollector.RecordOperation.
const (
	opLogin    = "login"
	opExchange = "exchange"
	opRefresh  = "refresh"
)

// Service runs the reddit auth flow. It is immutable after New and safe for
// concurrent use.
type Service struct {
	config  Config
	client  HTTPClient
	limiter *rate.Limiter
	metrics MetricsCollector
	logger  log.FieldLogger
}

// Init initializes the global service instance
func Init(configs ...Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = &configs[0]
		} else {
			cfg, defaultErr = GetConfig(config.LoadOptions{Prefix: config.DefaultPrefix})
			if defaultErr != nil {
				return
			}
		}

		defaultService, defaultErr = New(*cfg)
	})

	return defaultErr
}

// New creates a new service instance. Missing app credentials are not an
// error here; each operation checks what it needs before any request.
func New(cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	var client HTTPClient
	switch c := cfg.HTTPClient.(type) {
	case nil:
		client = withRedirectControl(&http.Client{Timeout: cfg.HTTPTimeout})
	case *http.Client:
		client = withRedirectControl(c)
	default:
		client = c
	}

	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			l := log.New()
			l.SetLevel(log.DebugLevel)
			logger = l
		} else {
			logger = log.StandardLogger()
		}
	}

	limiter := cfg.Limiter
	if limiter == nil && cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Service{
		config:  cfg,
		client:  client,
		limiter: limiter,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// Login signs in through the legacy endpoint and converts the resulting
// session into an OAuth token.
func (s *Service) Login(ctx context.Context, username, password string) (*Outcome, error) {
	start := time.Now()
	logger := s.flowLogger(opLogin)

	outcome, err := s.login(ctx, logger, username, password)
	s.finish(logger, opLogin, outcome != nil && outcome.Authorized(), start, err)
	return outcome, err
}

// ConvertCookiesToAuthToken turns an existing reddit session into an OAuth
// token. A non-redirect answer from the authorize endpoint is returned as
// Outcome.Status with a nil error.
func (s *Service) ConvertCookiesToAuthToken(ctx context.Context, cookies []string) (*Outcome, error) {
	start := time.Now()
	logger := s.flowLogger(opExchange)

	outcome, err := s.convertCookies(ctx, logger, cookies)
	s.finish(logger, opExchange, outcome != nil && outcome.Authorized(), start, err)
	return outcome, err
}

// RefreshToken exchanges a refresh token for a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	start := time.Now()
	logger := s.flowLogger(opRefresh)

	tok, err := s.refresh(ctx, logger, refreshToken)
	s.finish(logger, opRefresh, err == nil, start, err)
	return tok, err
}

// Config returns the service configuration
func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Metrics returns the configured collector, or nil
func (s *Service) Metrics() MetricsCollector {
	return s.metrics
}

func (s *Service) flowLogger(op string) log.FieldLogger {
	return s.logger.WithFields(log.Fields{
		"op":      op,
		"flow_id": uuid.NewString(),
	})
}

func (s *Service) finish(logger log.FieldLogger, op string, success bool, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordOperation(op, success, time.Since(start))
	}
	entry := logger.WithField("duration", time.Since(start))
	if err != nil {
		entry.WithField("status", StatusCode(err)).Debugf("%s failed: %v", op, err)
		return
	}
	entry.WithField("authorized", success).Debugf("%s finished", op)
}

// Login runs Service.Login with a service built from cfg.
func Login(ctx context.Context, cfg Config, username, password string) (*Outcome, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, username, password)
}

// ConvertCookiesToAuthToken runs Service.ConvertCookiesToAuthToken with a
// service built from cfg.
func ConvertCookiesToAuthToken(ctx context.Context, cfg Config, cookies []string) (*Outcome, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.ConvertCookiesToAuthToken(ctx, cookies)
}

// RefreshToken runs Service.RefreshToken with a service built from cfg.
func RefreshToken(ctx context.Context, cfg Config, refreshToken string) (*TokenResponse, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.RefreshToken(ctx, refreshToken)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultService = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Default returns the global service instance, initializing it from the
// environment if needed. It returns nil when initialization failed.
func Default() *Service {
	if defaultService == nil {
		_ = Init()
	}
	return defaultService
}
