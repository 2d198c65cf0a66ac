package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/database/postgres"
	"github.com/jbcurtin/astro-cloud/fits"
	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

var (
	testPool     *pgxpool.Pool
	testPoolErr  error
	testPoolOnce sync.Once
)

// getSharedTestDatabase starts one postgres container for the package and
// returns a pool connected to it.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPoolErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			testPoolErr = fmt.Errorf("connection string: %w", err)
			return
		}

		testPool, testPoolErr = pgxpool.New(ctx, connectionStr)
	})

	require.NoError(t, testPoolErr)
	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func getDSN(pool *pgxpool.Pool) string {
	return pool.Config().ConnString()
}

// setupTestRepo creates a repo with a unique table name for test isolation.
func setupTestRepo(t *testing.T) astrocloud.IndexRepo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := astrocloud.Tables{Headers: "headers_" + getRandomString(t)}

	db, err := postgres.Connect(ctx, getDSN(pool), tables)
	require.NoError(t, err, "failed to connect")
	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	t.Cleanup(func() {
		_ = postgres.DropTables(ctx, pool, tables)
		_ = db.Close()
	})

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
