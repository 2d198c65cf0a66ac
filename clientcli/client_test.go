package clientcli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/clientcli"
	"github.com/jbcurtin/astro-cloud/database"
	"github.com/jbcurtin/astro-cloud/fits"
	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

// serveFile serves data with range support and counts requests.
func serveFile(t *testing.T, data []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.ServeContent(w, r, "a.fits", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func publicConfig() *clientcli.Config {
	return &clientcli.Config{Service: astrocloud.ServicePublic, ExtentMode: fits.ModeReference}
}

func openRepo(t *testing.T) astrocloud.IndexRepo {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Type:   "sqlite",
		DSN:    filepath.Join(t.TempDir(), "cache.db"),
		Tables: astrocloud.Tables{Headers: "fits_headers"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.GetRepo()
}

func TestNew(t *testing.T) {
	_, err := clientcli.New(nil)
	assert.ErrorIs(t, err, clientcli.ErrConfigRequired)

	_, err = clientcli.New(&clientcli.Config{Service: "dropbox"})
	assert.ErrorIs(t, err, astrocloud.ErrInvalidInput)

	_, err = clientcli.New(&clientcli.Config{Service: astrocloud.ServiceAzure})
	assert.ErrorIs(t, err, astrocloud.ErrNotImplemented)

	_, err = clientcli.New(&clientcli.Config{Service: astrocloud.ServiceGCS, Payment: astrocloud.PaymentRequester})
	assert.ErrorIs(t, err, astrocloud.ErrNotImplemented)

	c, err := clientcli.New(publicConfig(), clientcli.WithTimeout(time.Second))
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_Index(t *testing.T) {
	srv, _ := serveFile(t, fitstest.Concat(fitstest.Primary(), fitstest.BinTable(16, 180), fitstest.Data(2880)))

	c, err := clientcli.New(publicConfig(), clientcli.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	index, err := c.Index(context.Background(), srv.URL+"/a.fits", false)
	require.NoError(t, err)
	assert.True(t, index.Complete())
	require.Len(t, index.Records, 2)
	assert.Equal(t, "BINTABLE", fits.Kind(index.Records[1].Header))
}

func TestClient_Index_EmptyURL(t *testing.T) {
	c, err := clientcli.New(publicConfig())
	require.NoError(t, err)

	_, err = c.Index(context.Background(), "", false)
	assert.ErrorIs(t, err, clientcli.ErrEmptyURL)
	assert.ErrorIs(t, c.Forget(context.Background(), ""), clientcli.ErrEmptyURL)
}

func TestClient_Index_MissingCredentials(t *testing.T) {
	srv, requests := serveFile(t, fitstest.Primary())

	c, err := clientcli.New(&clientcli.Config{Service: astrocloud.ServiceS3}, clientcli.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Index(context.Background(), srv.URL+"/a.fits", false)
	assert.ErrorIs(t, err, astrocloud.ErrUnauthenticated)
	assert.Zero(t, requests.Load())
}

func TestClient_Cache(t *testing.T) {
	srv, requests := serveFile(t, fitstest.Primary())
	ctx := context.Background()
	url := srv.URL + "/a.fits"

	c, err := clientcli.New(publicConfig(), clientcli.WithHTTPClient(srv.Client()), clientcli.WithRepo(openRepo(t)))
	require.NoError(t, err)

	_, err = c.Index(ctx, url, false)
	require.NoError(t, err)
	walked := requests.Load()
	assert.Equal(t, int64(2), walked, "one header block and the closing 416")

	cached, err := c.Index(ctx, url, false)
	require.NoError(t, err)
	assert.Len(t, cached.Records, 1)
	assert.Equal(t, walked, requests.Load(), "served from cache")

	_, err = c.Index(ctx, url, true)
	require.NoError(t, err)
	assert.Equal(t, 2*walked, requests.Load(), "refresh walks again")

	summaries, err := c.Cached(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, url, summaries[0].URL)

	require.NoError(t, c.Forget(ctx, url))
	assert.ErrorIs(t, c.Forget(ctx, url), astrocloud.ErrNotFound)
}
