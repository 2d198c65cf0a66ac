package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/credentials"
	achttp "github.com/jbcurtin/astro-cloud/http"
)

const (
	testAccessKey = "AKIATEST"
	testSecretKey = "testsecret"
)

func newVerifier(t *testing.T) *astrocloud.SignatureVerifier {
	t.Helper()
	store, err := credentials.NewStore(credentials.KeysConfig{
		Inline: []credentials.KeyPair{{AccessKey: testAccessKey, SecretKey: testSecretKey}},
	})
	require.NoError(t, err)
	return astrocloud.NewSignatureVerifier("us-east-1", "s3", store)
}

func newSigner() *astrocloud.Signer {
	return astrocloud.NewSigner(astrocloud.Credentials{
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		Region:    "us-east-1",
		Service:   "s3",
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestAuthMiddleware_PublicAccess(t *testing.T) {
	wrapped := achttp.AuthMiddleware(nil)(okHandler())

	req := httptest.NewRequest("GET", "/test.fits", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthMiddleware_RequiresAuth_NoSignature(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := achttp.AuthMiddleware(newVerifier(t))(handler)

	req := httptest.NewRequest("GET", "/test.fits", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAuthMiddleware_ValidSignature(t *testing.T) {
	wrapped := achttp.AuthMiddleware(newVerifier(t))(okHandler())

	req := httptest.NewRequest("GET", "http://bucket.local/test.fits", nil)
	require.NoError(t, newSigner().SignRequest(req))
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	wrapped := achttp.AuthMiddleware(newVerifier(t))(okHandler())

	signer := astrocloud.NewSigner(astrocloud.Credentials{
		AccessKey: testAccessKey,
		SecretKey: "not-the-secret",
		Region:    "us-east-1",
		Service:   "s3",
	})
	req := httptest.NewRequest("GET", "http://bucket.local/test.fits", nil)
	require.NoError(t, signer.SignRequest(req))
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware_QueryStringNotImplemented(t *testing.T) {
	wrapped := achttp.AuthMiddleware(newVerifier(t))(okHandler())

	req := httptest.NewRequest("GET", "http://bucket.local/test.fits", nil)
	require.NoError(t, newSigner().SignRequest(req))
	req.URL.RawQuery = "versionId=1"
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
