package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email         TEXT        NOT NULL UNIQUE,
  full_name     TEXT        NOT NULL,
  role          TEXT        NOT NULL CHECK (role IN ('USER', 'REVIEWER')),
  password_hash TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name         TEXT        NOT NULL CHECK (char_length(name) BETWEEN 3 AND 100),
  status       TEXT        NOT NULL CHECK (status IN ('DRAFT', 'READY_FOR_REVIEW', 'UNDER_REVIEW', 'APPROVED', 'DECLINED', 'REVOKE')),
  creator_id   UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_creator_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_creator_id ON documents (creator_id);`,
	},
	{
		Name: "create_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_index_documents_updated_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents (updated_at);`,
	},
}

const (
	createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	selectApplied = `SELECT name FROM schema_migrations`
	insertApplied = `INSERT INTO schema_migrations (name) VALUES ($1)`
)

// EnsureMigrated applies every step not yet recorded in schema_migrations.
// Each step runs in its own transaction together with its ledger row.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		log.Error("db_migration_failed", "error", err.Error())
		return fmt.Errorf("create migration ledger: %w", err)
	}

	applied, err := appliedSteps(ctx, db)
	if err != nil {
		log.Error("db_migration_failed", "error", err.Error())
		return err
	}

	ran := 0
	for _, step := range steps {
		if applied[step.Name] {
			continue
		}
		stepStart := time.Now()
		if err := apply(ctx, db, step); err != nil {
			log.Error("db_migration_failed",
				"migration_step", step.Name,
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		ran++
		log.Info("db_migration_step",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	if ran == 0 {
		log.Info("db_migration_skip", "msg", "schema up to date", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
	log.Info("db_migration_success", "steps", ran, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func appliedSteps(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, selectApplied)
	if err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("read migration ledger: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, step migrationStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, insertApplied, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
