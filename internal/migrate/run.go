// Package migrate applies the embedded schema for the tickets table.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/target/ticketflow/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one embedded schema step.
type Migration struct {
	Version string
	File    string
}

// Status reports a migration and whether it has been applied.
type Status struct {
	Migration
	Applied bool
}

// Migrations lists the embedded migrations in apply order.
func Migrations() ([]Migration, error) {
	return list(migrationsFS)
}

func list(fsys fs.ReadDirFS) ([]Migration, error) {
	entries, err := fsys.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		out = append(out, Migration{Version: strings.TrimSuffix(e.Name(), ".sql"), File: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Run applies every pending migration, each in its own transaction.
// It is safe to call repeatedly.
func Run(ctx context.Context, db *sql.DB) error {
	logger := slog.Default().With("component", "migrations")
	if err := ensureTable(ctx, db); err != nil {
		return err
	}
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	applied := 0
	for _, m := range migrations {
		did, err := apply(ctx, db, m, logger)
		if err != nil {
			return err
		}
		if did {
			applied++
		}
	}
	logger.InfoContext(ctx, "migrations complete", "applied", applied, "total", len(migrations))
	return nil
}

// Pending reports each embedded migration with its applied state.
func Pending(ctx context.Context, db *sql.DB) ([]Status, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		ok, err := isApplied(ctx, db, m)
		if err != nil {
			return nil, err
		}
		out = append(out, Status{Migration: m, Applied: ok})
	}
	return out, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, m Migration) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", m.File, err)
	}
	return exists, nil
}

func apply(ctx context.Context, db *sql.DB, m Migration, logger *slog.Logger) (bool, error) {
	done, err := isApplied(ctx, db, m)
	if err != nil || done {
		return false, err
	}

	body, err := migrationsFS.ReadFile("migrations/" + m.File)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", m.File, err)
	}
	logger.InfoContext(ctx, "applying migration", "version", m.Version)

	err = pgxutil.WithSQLTx(ctx, db, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("exec migration %s: %w", m.File, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.File, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
