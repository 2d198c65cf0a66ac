package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables astrocloud.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Headers,
			Up:        createHeadersTable(tables.Headers),
			Down:      dropTable(tables.Headers),
		},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables astrocloud.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

// DropTables reverses Migrate.
func DropTables(ctx context.Context, db *sql.DB, tables astrocloud.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}
	return nil
}

func createHeadersTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexURL := quoteIdentifier(fmt.Sprintf("idx_%s_url", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				url TEXT NOT NULL,
				position INTEGER NOT NULL,
				byte_offset INTEGER NOT NULL,
				byte_length INTEGER NOT NULL,
				header TEXT NOT NULL,
				created_at TEXT NOT NULL,
				UNIQUE (url, position)
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (url, position)`, indexURL, quotedTable)
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index url: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}
