package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"incidentdeck/core/utils"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// SQLite DDL mirrors the goose postgres migrations. The incidents table takes
// arbitrary run rows; posts and status_posts carry the chat artifacts, with
// foreign keys so a status post referencing a missing row is rejected by the
// store itself.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS incidents (
		id TEXT PRIMARY KEY,
		team_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		commander_user_id TEXT NOT NULL DEFAULT '',
		reporter_user_id TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		post_id TEXT NOT NULL DEFAULT '',
		active_stage INTEGER NOT NULL DEFAULT 0,
		checklists_json TEXT NOT NULL DEFAULT '[]',
		create_at BIGINT NOT NULL,
		end_at BIGINT NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		create_at BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS status_posts (
		incident_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		PRIMARY KEY (incident_id, post_id),
		FOREIGN KEY(incident_id) REFERENCES incidents(id) ON DELETE CASCADE,
		FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_team ON incidents(team_id);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_team_create_at ON incidents(team_id, create_at);`,
	`CREATE INDEX IF NOT EXISTS idx_status_posts_post ON status_posts(post_id);`,
}

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	if db.Driver() == DriverSQLite {
		return applySQLiteMigrations(ctx, db, logger)
	}
	return applyGooseMigrations(ctx, db, logger)
}

func applySQLiteMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	logger.Printf("applying sqlite migrations")
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return nil
}

func applyGooseMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	logger.Printf("applying goose migrations")
	goose.SetBaseFS(embeddedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
