// internal/store/migrate.go
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version     TEXT PRIMARY KEY,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectAppliedMigrations = `SELECT version FROM schema_migrations`
	insertMigration         = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// Migrate applies every embedded migration not yet recorded, in file name
// order, each in its own transaction. It returns the versions it applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, queryFailed("create schema_migrations", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	var ran []string
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		if applied[version] {
			continue
		}
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return ran, fmt.Errorf("read migration %s: %w", name, err)
		}

		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return queryFailed("apply migration "+version, err)
			}
			if _, err := tx.ExecContext(ctx, insertMigration, version); err != nil {
				return queryFailed("record migration "+version, err)
			}
			return nil
		})
		if err != nil {
			return ran, err
		}
		s.logger.Info("migration applied", map[string]interface{}{"version": version})
		ran = append(ran, version)
	}
	return ran, nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, selectAppliedMigrations)
	if err != nil {
		return nil, queryFailed("list applied migrations", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, queryFailed("scan migration version", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
