package credentials_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/credentials"
)

func TestNewStore_InlineAndFile(t *testing.T) {
	path := writeFile(t, "keys.json", `[
  {"access_key": "AKIAFILE", "secret_key": "file-secret"},
  {"access_key": "AKIASHARED", "secret_key": "from-file"},
  {"access_key": "", "secret_key": "orphan"}
]`)

	store, err := credentials.NewStore(credentials.KeysConfig{
		Inline: []credentials.KeyPair{
			{AccessKey: "AKIAINLINE", SecretKey: "inline-secret"},
			{AccessKey: "AKIASHARED", SecretKey: "from-inline"},
			{AccessKey: "AKIANOSECRET"},
		},
		File: path,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	secret, err := store.Lookup("AKIASHARED")
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)

	secret, err = store.Lookup("AKIAINLINE")
	require.NoError(t, err)
	assert.Equal(t, "inline-secret", secret)

	_, err = store.Lookup("AKIANOSECRET")
	assert.ErrorIs(t, err, astrocloud.ErrUnauthorized)
}

func TestReadKeysFile_YAML(t *testing.T) {
	path := writeFile(t, "keys.yaml", `
- access_key: AKIAYAML
  secret_key: yaml-secret
`)

	pairs, err := credentials.ReadKeysFile(path)
	require.NoError(t, err)
	assert.Equal(t, []credentials.KeyPair{{AccessKey: "AKIAYAML", SecretKey: "yaml-secret"}}, pairs)
}

func TestReadKeysFile_Errors(t *testing.T) {
	_, err := credentials.ReadKeysFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")

	path := writeFile(t, "bad.json", `{"access_key": "not a list"}`)
	_, err = credentials.ReadKeysFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse keys file")

	_, err = credentials.NewStore(credentials.KeysConfig{File: path})
	assert.Error(t, err)
}

func TestStore_SatisfiesSecretStore(t *testing.T) {
	store, err := credentials.NewStore(credentials.KeysConfig{})
	require.NoError(t, err)

	var _ astrocloud.SecretStore = store
	assert.Zero(t, store.Len())
}
