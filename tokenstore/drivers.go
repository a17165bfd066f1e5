package tokenstore

import (
	"github.com/gobeaver/reddit-kit/tokenstore/driver"
	"github.com/gobeaver/reddit-kit/tokenstore/driver/database"
	"github.com/gobeaver/reddit-kit/tokenstore/driver/memory"
	"github.com/gobeaver/reddit-kit/tokenstore/driver/redis"
)

// Driver registration functions

func memoryRegister(cfg Config) (driver.Backend, error) {
	return memory.New(memory.Config{
		MaxKeys:         cfg.MaxKeys,
		CleanupInterval: cfg.CleanupInterval,
		KeyPrefix:       cfg.KeyPrefix,
	}), nil
}

func redisRegister(cfg Config) (driver.Backend, error) {
	port := cfg.Port
	if port == "" {
		port = "6379"
	}

	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: cfg.RedisDB,
		URL:      cfg.URL,

		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		UseTLS:   cfg.UseTLS,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
		CAFile:   cfg.CAFile,

		KeyPrefix: cfg.KeyPrefix,
	})
}

func databaseRegister(cfg Config) (driver.Backend, error) {
	return database.New(database.Config{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,

		URL:       cfg.URL,
		AuthToken: cfg.AuthToken,
		SSLMode:   cfg.SSLMode,
		Params:    cfg.Params,

		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,

		Table:     cfg.Table,
		KeyPrefix: cfg.KeyPrefix,
		Debug:     cfg.Debug,
	})
}
