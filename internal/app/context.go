// Package app wires the workspace together for the CLI: open the store,
// run migrations, seed the user roster.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shipline/internal/config"
	dbpkg "shipline/internal/db"
	"shipline/internal/engine"
	"shipline/internal/migrate"
	"shipline/internal/repo"
)

// Open opens the workspace database and applies pending migrations.
func Open(workspace string) (*sql.DB, error) {
	conn, err := dbpkg.Open(dbpkg.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

// SeedUsers registers every configured roster user that does not exist yet.
// Existing names are left untouched, so seeding is idempotent across
// restarts and never resets a changed password.
func SeedUsers(ctx context.Context, eng engine.Engine, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	for _, u := range cfg.Seed.Users {
		_, err := eng.Repo.GetUserByName(ctx, u.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if _, err := eng.SeedUser(ctx, u.Name, u.Role, u.Password); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Name, err)
		}
	}
	return nil
}
