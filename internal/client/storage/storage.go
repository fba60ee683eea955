// Package storage opens and migrates the local sqlite database that holds
// durable client state (bearer token, edit secrets, owned-resume index).
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cvkitdev/cvkit/internal/client/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the client database at dsn and brings the
// schema up to date. The caller owns the returned handle.
//
// The driver ("sqlite", modernc.org/sqlite) must be registered by the
// importing binary.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open client database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping client database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate client database: %w", err)
	}

	return db, nil
}
