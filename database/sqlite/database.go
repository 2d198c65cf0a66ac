// Package sqlite stores header indexes in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	astrocloud "github.com/jbcurtin/astro-cloud"

	_ "modernc.org/sqlite" // SQLite driver
)

type database struct {
	db     *sql.DB
	tables astrocloud.Tables
}

// Connect opens the SQLite database at dsn.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables astrocloud.Tables) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// A single connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the headers table and its indexes if absent.
func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

func (d *database) GetRepo() astrocloud.IndexRepo {
	return &repo{db: d.db, tableName: d.tables.Headers}
}

func (d *database) Close() error {
	return d.db.Close()
}
