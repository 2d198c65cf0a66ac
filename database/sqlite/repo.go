package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/fits"
)

type repo struct {
	db        *sql.DB
	tableName string
}

func (r *repo) Get(ctx context.Context, url string) ([]astrocloud.HeaderRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT byte_offset, byte_length, header
		FROM %s
		WHERE url = ?
		ORDER BY position`, quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []astrocloud.HeaderRecord
	for rows.Next() {
		var rec astrocloud.HeaderRecord
		var raw string
		if err := rows.Scan(&rec.Offset, &rec.Length, &raw); err != nil {
			return nil, fmt.Errorf("get: scan: %w", err)
		}
		rec.Header, err = fits.ParseHeader(raw)
		if err != nil {
			return nil, fmt.Errorf("get: parse stored header at offset %d: %w", rec.Offset, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get: rows: %w", err)
	}

	if len(records) == 0 {
		return nil, astrocloud.ErrNotFound
	}
	return records, nil
}

func (r *repo) Save(ctx context.Context, url string, records []astrocloud.HeaderRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE url = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated
	if _, err := tx.ExecContext(ctx, deleteQuery, url); err != nil {
		return fmt.Errorf("save: clear: %w", err)
	}

	insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, url, position, byte_offset, byte_length, header, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, quoteIdentifier(r.tableName))

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("save: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, rec := range records {
		if rec.Header == nil {
			return fmt.Errorf("save: record %d has no header: %w", i, astrocloud.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), url, i, rec.Offset, rec.Length, rec.Header.Raw(), now); err != nil {
			return fmt.Errorf("save: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: commit: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, url string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE url = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, url)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", astrocloud.ErrNotFound)
	}

	return nil
}

func (r *repo) List(ctx context.Context) ([]astrocloud.IndexSummary, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT url, COUNT(*), MIN(created_at)
		FROM %s
		GROUP BY url
		ORDER BY url`, quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []astrocloud.IndexSummary{}
	for rows.Next() {
		var s astrocloud.IndexSummary
		var createdAt string
		if err := rows.Scan(&s.URL, &s.Headers, &createdAt); err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list: parse created_at: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return summaries, nil
}
