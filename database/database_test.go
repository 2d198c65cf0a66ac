package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/database"
	"github.com/jbcurtin/astro-cloud/fits"
	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

func newTestConfig(t *testing.T, tableName string) database.Config {
	t.Helper()
	return database.Config{
		Type:   "sqlite",
		DSN:    filepath.Join(t.TempDir(), "index.db"),
		Tables: astrocloud.Tables{Headers: tableName},
	}
}

func TestConnect_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig(t, "fits_headers"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, db.Ping(ctx))
	assert.Error(t, db.Validate(ctx), "connect does not migrate")
}

func TestConnect_InvalidType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dbType  string
		wantErr string
	}{
		{name: "unknown", dbType: "mysql", wantErr: "unsupported database type"},
		{name: "empty", dbType: "", wantErr: "unsupported database type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := newTestConfig(t, "fits_headers")
			cfg.Type = tt.dbType

			_, err := database.Connect(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnect_InvalidTableName(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), newTestConfig(t, "Headers-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid headers table name")
}

func TestOpen_ReadyRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Open(ctx, newTestConfig(t, "fits_headers"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Validate(ctx))

	h, err := fits.ParseHeader(string(fitstest.Primary()))
	require.NoError(t, err)

	repo := db.GetRepo()
	record := astrocloud.HeaderRecord{Offset: 0, Length: fits.BlockSize, Header: h}
	require.NoError(t, repo.Save(ctx, "https://example.org/a.fits", []astrocloud.HeaderRecord{record}))

	summaries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Headers)
}

func TestOpen_ReopenKeepsCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := newTestConfig(t, "fits_headers")

	h, err := fits.ParseHeader(string(fitstest.Primary()))
	require.NoError(t, err)

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	record := astrocloud.HeaderRecord{Offset: 0, Length: fits.BlockSize, Header: h}
	require.NoError(t, db.GetRepo().Save(ctx, "https://example.org/a.fits", []astrocloud.HeaderRecord{record}))
	require.NoError(t, db.Close())

	db, err = database.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	got, err := db.GetRepo().Get(ctx, "https://example.org/a.fits")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig(t, "fits_headers"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx), "ping should fail after close")
}
