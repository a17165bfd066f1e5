package redditauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gobeaver/reddit-kit/config"
)

// DefaultOrigin is the host serving the legacy login and authorize endpoints.
const DefaultOrigin = "https://www.reddit.com"

// Config defines the reddit auth service configuration
type Config struct {
	// Origin is the reddit host for login, identity and authorize requests
	Origin string `env:"ORIGIN,default:https://www.reddit.com"`

	// OAuthAppOrigin is the redirect URI registered with the reddit app
	OAuthAppOrigin string `env:"OAUTH_APP_ORIGIN"`

	// ClientID is the reddit app's client id
	ClientID string `env:"CLIENT_ID"`

	// ClientSecret is the reddit app's client secret
	ClientSecret string `env:"CLIENT_SECRET"`

	// UserAgent is sent on every request
	UserAgent string `env:"USER_AGENT,default:reddit-kit/1.0"`

	// DefaultHeaders are merged into every request last, overriding step headers
	DefaultHeaders map[string]string `env:"DEFAULT_HEADERS"`

	// HTTPTimeout bounds each request when no HTTPClient is supplied
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default:30s"`

	// RateLimit is the allowed requests per second, 0 disables limiting
	RateLimit float64 `env:"RATE_LIMIT,default:0"`
	RateBurst int     `env:"RATE_BURST,default:1"`

	// Debug enables debug logging
	Debug bool `env:"DEBUG,default:false"`

	// HTTPClient replaces the default client. *http.Client values are
	// copied, never modified.
	HTTPClient HTTPClient `json:"-"`

	// Logger receives debug output. Defaults to the logrus standard logger.
	Logger log.FieldLogger `json:"-"`

	// Metrics is optional; nil disables collection.
	Metrics MetricsCollector `json:"-"`

	// Limiter may be shared between services using the same client id.
	// It takes precedence over RateLimit.
	Limiter *rate.Limiter `json:"-"`
}

// GetConfig returns config loaded from environment with optional LoadOptions
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load redditauth config: %w", err)
	}
	return cfg, nil
}

// validateConfig checks settings that every request depends on. Missing app
// credentials are checked per operation instead.
func validateConfig(cfg Config) error {
	u, err := url.Parse(cfg.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "Origin", Message: fmt.Sprintf("origin must be an absolute http(s) URL, got %q", cfg.Origin)}
	}
	if cfg.HTTPTimeout < 0 {
		return &ConfigError{Field: "HTTPTimeout", Message: "http timeout must not be negative"}
	}
	if cfg.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "rate limit must not be negative"}
	}
	return nil
}

// requireApp checks the settings needed to start an authorization.
func (c Config) requireApp() error {
	if c.OAuthAppOrigin == "" {
		return &ConfigError{Field: "OAuthAppOrigin", Message: msgMissingAppOrigin}
	}
	return c.requireClient()
}

// requireClient checks the settings needed to call the token endpoint.
func (c Config) requireClient() error {
	if c.ClientID == "" {
		return &ConfigError{Field: "ClientID", Message: msgMissingClientID}
	}
	if c.ClientSecret == "" {
		return &ConfigError{Field: "ClientSecret", Message: msgMissingClientSecret}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Origin == "" {
		c.Origin = DefaultOrigin
	}
	c.Origin = strings.TrimRight(c.Origin, "/")
	if c.UserAgent == "" {
		c.UserAgent = "reddit-kit/1.0"
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}
	return c
}

// Builder pattern for custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the default service with the builder's prefix
func (b *Builder) Init() error {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return err
	}
	return Init(*cfg)
}

// New creates a new service instance with the builder's prefix
func (b *Builder) New() (*Service, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}
