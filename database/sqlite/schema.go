package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

type columnInfo struct {
	dataType   string
	isNullable bool
}

var headersTableSchema = map[string]columnInfo{
	"id":          {"text", false},
	"url":         {"text", false},
	"position":    {"integer", false},
	"byte_offset": {"integer", false},
	"byte_length": {"integer", false},
	"header":      {"text", false},
	"created_at":  {"text", false},
}

// ValidateSchema checks that every configured table exists with the expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB, tables astrocloud.Tables) error {
	if err := validateTableSchema(ctx, db, tables.Headers, headersTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Headers, err)
	}
	return nil
}

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expectedSchema map[string]columnInfo) error {
	if !astrocloud.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName)))
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := make(map[string]columnInfo)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			dfltValue        sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = columnInfo{
			dataType:   strings.ToLower(dataType),
			isNullable: notNull == 0 && pk == 0,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	var problems []string
	for name, want := range expectedSchema {
		got, ok := actual[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing column %s", name))
			continue
		}
		if got.dataType != want.dataType {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", name, want.dataType, got.dataType))
		}
		if got.isNullable != want.isNullable {
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, want.isNullable, got.isNullable))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New("table " + tableName + " schema validation failed: " + strings.Join(problems, "; "))
	}

	return nil
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}
