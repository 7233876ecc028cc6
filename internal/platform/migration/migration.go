// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

// Package migration applies SQL schema migrations on application startup.
package migration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Run applies all pending up-migrations from sourcePath against the database
// identified by dsn. It is a no-op when the schema is already current.
//
// # Parameters
//   - dsn: A postgres:// connection URL (rewritten to the pgx5 driver scheme).
//   - sourcePath: Filesystem path to the directory of .sql migration files.
//   - logger: Structured logger for migration progress.
func Run(dsn, sourcePath string, logger *slog.Logger) error {
	sourceURL := "file://" + sourcePath
	// golang-migrate selects the database driver from the URL scheme.
	databaseURL := "pgx5://" + trimScheme(dsn)

	migrator, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil {
			logger.Warn("migration source close failed", slog.Any("error", sourceErr))
		}
		if dbErr != nil {
			logger.Warn("migration database close failed", slog.Any("error", dbErr))
		}
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("migration: version check failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d", version)
	}

	logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

// trimScheme strips a leading postgres:// or postgresql:// scheme so the URL
// can be re-prefixed with the pgx5 driver scheme.
func trimScheme(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://", "pgx5://"} {
		if len(dsn) > len(scheme) && dsn[:len(scheme)] == scheme {
			return dsn[len(scheme):]
		}
	}
	return dsn
}
