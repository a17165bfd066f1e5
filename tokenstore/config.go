package tokenstore

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gobeaver/reddit-kit/config"
	"github.com/gobeaver/reddit-kit/krypto"
)

// Config holds token store configuration
type Config struct {
	// Driver specifies the backend: memory, redis, sqlite, postgres, mysql or libsql
	Driver string `env:"TOKENSTORE_DRIVER,default:memory"`

	// Connection settings shared by redis and the SQL drivers
	Host     string `env:"TOKENSTORE_HOST,default:localhost"`
	Port     string `env:"TOKENSTORE_PORT"`
	Username string `env:"TOKENSTORE_USERNAME"`
	Password string `env:"TOKENSTORE_PASSWORD"`

	// Database is the SQL database name, or the sqlite file
	Database string `env:"TOKENSTORE_DATABASE"`

	// RedisDB selects the redis logical database
	RedisDB int `env:"TOKENSTORE_REDIS_DB,default:0"`

	// URL overrides the individual connection settings
	URL       string `env:"TOKENSTORE_URL"`
	AuthToken string `env:"TOKENSTORE_AUTH_TOKEN"`
	SSLMode   string `env:"TOKENSTORE_SSL_MODE"`
	Params    string `env:"TOKENSTORE_PARAMS"`

	// Pool settings
	MaxRetries      int           `env:"TOKENSTORE_MAX_RETRIES,default:3"`
	PoolSize        int           `env:"TOKENSTORE_POOL_SIZE,default:10"`
	MinIdleConns    int           `env:"TOKENSTORE_MIN_IDLE_CONNS,default:0"`
	MaxOpenConns    int           `env:"TOKENSTORE_MAX_OPEN_CONNS,default:10"`
	MaxIdleConns    int           `env:"TOKENSTORE_MAX_IDLE_CONNS,default:2"`
	ConnMaxLifetime time.Duration `env:"TOKENSTORE_CONN_MAX_LIFETIME,default:0s"`

	// TLS settings for redis
	UseTLS   bool   `env:"TOKENSTORE_USE_TLS,default:false"`
	CertFile string `env:"TOKENSTORE_CERT_FILE"`
	KeyFile  string `env:"TOKENSTORE_KEY_FILE"`
	CAFile   string `env:"TOKENSTORE_CA_FILE"`

	// Memory backend
	MaxKeys         int           `env:"TOKENSTORE_MAX_KEYS,default:0"`
	CleanupInterval time.Duration `env:"TOKENSTORE_CLEANUP_INTERVAL,default:1m"`

	// Table is the SQL table holding the records
	Table string `env:"TOKENSTORE_TABLE,default:reddit_tokens"`

	KeyPrefix string `env:"TOKENSTORE_KEY_PREFIX,default:reddit:token:"`

	// EncryptionKey enables sealing records with AES-GCM. The AES key is
	// derived from it with argon2id and a per-record salt.
	EncryptionKey string `env:"TOKENSTORE_ENCRYPTION_KEY"`

	// TTL expires records, 0 keeps them until deleted
	TTL time.Duration `env:"TOKENSTORE_TTL,default:0s"`

	Debug bool `env:"TOKENSTORE_DEBUG,default:false"`

	// KDF overrides krypto.DefaultKDFParams.
	KDF *krypto.KDFParams `json:"-"`

	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger `json:"-"`
}

// GetConfig loads configuration from environment variables
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("failed to load tokenstore config: %w", err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)
	return cfg, nil
}

// Builder provides a way to create stores with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global store using the builder's prefix
func (b *Builder) Init() error {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return err
	}
	return Init(*cfg)
}

// New creates a new store using the builder's prefix
func (b *Builder) New() (*Store, error) {
	cfg, err := GetConfig(config.LoadOptions{Prefix: b.prefix})
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}
