package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

type columnInfo struct {
	dataType   string
	isNullable bool
}

var headersTableSchema = map[string]columnInfo{
	"id":          {"uuid", false},
	"url":         {"text", false},
	"position":    {"integer", false},
	"byte_offset": {"bigint", false},
	"byte_length": {"bigint", false},
	"header":      {"text", false},
	"created_at":  {"timestamp with time zone", false},
}

// ValidateSchema checks that every configured table exists with the expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables astrocloud.Tables) error {
	if err := validateTableSchema(ctx, pool, tables.Headers, headersTableSchema); err != nil {
		return fmt.Errorf("validate schema %s: %w", tables.Headers, err)
	}
	return nil
}

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expectedSchema map[string]columnInfo) error {
	if !astrocloud.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, tableName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("validate table schema: check table exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = columnInfo{
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
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
