// Package database applies the schema migrations for the customer profile
// store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migrator applies plain *.up.sql files in lexical order, recording each
// applied version in schema_migrations so restarts skip what already ran.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator constructs a Migrator.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:  db,
		log: log,
	}
}

// ApplyDir scans dir for *.up.sql files and executes the pending ones.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}

	log := m.log.With(slog.String("dir", dir))

	if len(files) == 0 {
		log.Info("no migrations found")
		return nil
	}

	sort.Strings(files)

	if err := m.ensureLedger(ctx); err != nil {
		return err
	}

	for _, name := range files {
		if err := m.applyFile(ctx, log, dir, name); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	return nil
}

func (m *Migrator) applyFile(ctx context.Context, log *slog.Logger, dir, name string) error {
	var applied bool
	err := m.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", name,
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("check migration %q: %w", name, err)
	}
	if applied {
		return nil
	}

	path := filepath.Join(dir, name)

	// #nosec G304: migration paths are controlled by deployment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", path, err)
	}

	statement := strings.TrimSpace(string(data))
	if statement == "" {
		log.Warn("migration is empty, skipping", slog.String("file", name))
		return nil
	}

	log.Info("applying migration", slog.String("file", name))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, statement); err != nil {
		rollback(log, tx)
		return fmt.Errorf("execute migration %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		rollback(log, tx)
		return fmt.Errorf("record migration %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", name, err)
	}

	return nil
}

func rollback(log *slog.Logger, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("migration rollback failed", slog.Any("error", err))
	}
}
