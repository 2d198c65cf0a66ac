package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/database/sqlite"
	"github.com/jbcurtin/astro-cloud/fits"
	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func tempDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index.db")
}

// setupTestRepo creates a migrated repo in a fresh database file.
func setupTestRepo(t *testing.T) astrocloud.IndexRepo {
	t.Helper()
	ctx := context.Background()

	tables := astrocloud.Tables{Headers: "headers_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, tempDSN(t), tables)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo()
}

func sampleRecords(t *testing.T) []astrocloud.HeaderRecord {
	t.Helper()

	primary, err := fits.ParseHeader(string(fitstest.Primary(fitstest.Card("OBJECT", "'M31'"))))
	require.NoError(t, err)
	image, err := fits.ParseHeader(string(fitstest.Image(16, 10, 5)))
	require.NoError(t, err)

	return []astrocloud.HeaderRecord{
		{Offset: 0, Length: fits.BlockSize, Header: primary},
		{Offset: fits.BlockSize, Length: 2 * fits.BlockSize, Header: image},
	}
}
