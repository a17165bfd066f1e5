// Package tokenstore persists reddit OAuth tokens per account.
//
// Records keep the raw token response and the time it was issued, so a
// loaded token reports the same expiry as the one saved. With an encryption
// key configured each record is sealed with AES-GCM under a key derived by
// argon2id from a fresh salt.
//
// Backends live under driver/: an in-process map, redis, and SQL databases
// through GORM (sqlite, postgres, mysql and libsql).
//
//	store, err := tokenstore.New(tokenstore.Config{Driver: "sqlite", Database: "tokens.db"})
//	...
//	src, err := store.TokenSource(ctx, svc, "alice")
package tokenstore
