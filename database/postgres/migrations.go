package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables astrocloud.Tables) error {
	if err := createHeadersTable(ctx, pool, tables.Headers); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Headers, err)
	}
	return nil
}

// DropTables reverses Migrate.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables astrocloud.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tables.Headers}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Headers, err)
	}
	return nil
}

func createHeadersTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	uniqueURLPosition := pgx.Identifier{fmt.Sprintf("uq_%s_url_position", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			url TEXT NOT NULL,
			position INTEGER NOT NULL,
			byte_offset BIGINT NOT NULL,
			byte_length BIGINT NOT NULL,
			header TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT %s UNIQUE (url, position)
		);
	`,
		quotedTable,
		uniqueURLPosition,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create headers table: %w", err)
	}
	return nil
}
