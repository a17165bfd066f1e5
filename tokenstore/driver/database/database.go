// Package database stores token records in a SQL table through GORM.
// All database drivers are pure Go, so builds stay CGO-free.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gobeaver/reddit-kit/tokenstore/driver"
)

// Common errors
var (
	ErrInvalidDriver = errors.New("invalid database driver")
	ErrInvalidConfig = errors.New("invalid database configuration")
)

// DefaultTable is the table created when Config.Table is empty.
const DefaultTable = "reddit_tokens"

// Config holds database configuration
type Config struct {
	// Driver: postgres, mysql, sqlite, libsql (turso)
	Driver string

	Host     string
	Port     string
	Database string
	Username string
	Password string

	// URL for direct connection string (overrides individual settings)
	URL string

	// Auth token for Turso/LibSQL
	AuthToken string

	SSLMode string
	Params  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Table     string
	KeyPrefix string
	Debug     bool
}

// row is one stored token record.
type row struct {
	Key       string     `gorm:"column:token_key;primaryKey;size:191"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// Store implements a backend on a SQL table
type Store struct {
	db        *gorm.DB
	sqlDB     *sql.DB
	table     string
	keyPrefix string
}

var _ driver.Backend = (*Store)(nil)

// New opens the database and creates the table if needed
func New(cfg Config) (*Store, error) {
	cfg.Driver = strings.ToLower(cfg.Driver)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	sqlDB, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	s, err := NewFromDB(cfg, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB builds a store on an existing connection. Close closes sqlDB.
func NewFromDB(cfg Config, sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql.DB instance is required")
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: sqlDB})
	case "postgres", "postgresql":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "sqlite", "sqlite3", "libsql", "turso":
		dialector = sqlite.Dialector{Conn: sqlDB}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if err := db.Table(table).AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", table, err)
	}

	return &Store{db: db, sqlDB: sqlDB, table: table, keyPrefix: cfg.KeyPrefix}, nil
}

// Get retrieves a value by key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var r row
	err := s.db.WithContext(ctx).Table(s.table).Where("token_key = ?", s.keyPrefix+key).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, driver.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.ExpiresAt != nil && time.Now().After(*r.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, driver.ErrNotFound
	}
	return r.Value, nil
}

// Set inserts or replaces a value
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r := row{Key: s.keyPrefix + key, Value: value, UpdatedAt: time.Now()}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		r.ExpiresAt = &exp
	}

	return s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_key"}},
		UpdateAll: true,
	}).Create(&r).Error
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Table(s.table).Where("token_key = ?", s.keyPrefix+key).Delete(&row{}).Error
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

func openSQL(cfg Config) (*sql.DB, error) {
	var driverName, dsn string

	switch cfg.Driver {
	case "mysql":
		driverName = "mysql"
		dsn = buildMySQLDSN(cfg)
	case "postgres", "postgresql":
		driverName = "pgx"
		dsn = buildPostgresDSN(cfg)
	case "sqlite", "sqlite3":
		driverName = "sqlite"
		dsn = cfg.Database
		if dsn == "" {
			dsn = "file:reddit_tokens.db?cache=shared&mode=rwc"
		}
	case "libsql", "turso":
		driverName = "libsql"
		dsn = cfg.URL
		if cfg.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDriver, cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func validateConfig(cfg Config) error {
	switch cfg.Driver {
	case "":
		return errors.New("database driver required")
	case "libsql", "turso":
		if cfg.URL == "" {
			return errors.New("libsql requires URL to be set")
		}
	case "mysql", "postgres", "postgresql":
		if cfg.URL == "" && (cfg.Host == "" || cfg.Database == "") {
			return errors.New("database connection details required")
		}
	}
	return nil
}

func buildMySQLDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "3306"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)

	params := []string{"charset=utf8mb4", "parseTime=True", "loc=UTC"}
	if cfg.Params != "" {
		params = append(params, cfg.Params)
	}
	return dsn + "?" + strings.Join(params, "&")
}

func buildPostgresDSN(cfg Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%s", port),
		fmt.Sprintf("user=%s", cfg.Username),
		fmt.Sprintf("password=%s", cfg.Password),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", sslMode),
	}
	if cfg.Params != "" {
		parts = append(parts, cfg.Params)
	}
	return strings.Join(parts, " ")
}
