package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/fits"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables astrocloud.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Headers}, nil
}

func (r *Repo) table() string {
	return pgx.Identifier{r.tableName}.Sanitize()
}

func (r *Repo) Get(ctx context.Context, url string) ([]astrocloud.HeaderRecord, error) {
	query := fmt.Sprintf(`
		SELECT byte_offset, byte_length, header
		FROM %s
		WHERE url = $1
		ORDER BY position
	`, r.table())

	rows, err := r.pool.Query(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer rows.Close()

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

// Save replaces the stored index for url in one transaction, bulk loading
// rows with COPY.
func (r *Repo) Save(ctx context.Context, url string, records []astrocloud.HeaderRecord) error {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		if rec.Header == nil {
			return fmt.Errorf("save: record %d has no header: %w", i, astrocloud.ErrInvalidInput)
		}
		rows = append(rows, []any{url, int32(i), rec.Offset, rec.Length, rec.Header.Raw()})
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE url = $1`, r.table()), url); err != nil {
			return fmt.Errorf("clear: %w", err)
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{r.tableName},
			[]string{"url", "position", "byte_offset", "byte_length", "header"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, url string) error {
	result, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE url = $1`, r.table()), url)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", astrocloud.ErrNotFound)
	}

	return nil
}

func (r *Repo) List(ctx context.Context) ([]astrocloud.IndexSummary, error) {
	query := fmt.Sprintf(`
		SELECT url, COUNT(*), MIN(created_at)
		FROM %s
		GROUP BY url
		ORDER BY url
	`, r.table())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (astrocloud.IndexSummary, error) {
		var s astrocloud.IndexSummary
		var count int64
		if err := row.Scan(&s.URL, &count, &s.CreatedAt); err != nil {
			return s, err
		}
		s.Headers = int(count)
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	if summaries == nil {
		summaries = []astrocloud.IndexSummary{}
	}
	return summaries, nil
}
