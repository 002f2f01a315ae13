package nodebuilder

import (
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	require.False(t, IsInit(dir))

	require.NoError(t, Init(*DefaultConfig(), dir))
	assert.True(t, IsInit(dir))
	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.DirExists(t, dataPath(dir))

	// init over an initialized store keeps it usable
	require.NoError(t, Init(*DefaultConfig(), dir))
	assert.True(t, IsInit(dir))

	require.NoError(t, Remove(dir))
	assert.False(t, IsInit(dir))
}

func TestInitErrForLockedDir(t *testing.T) {
	dir := t.TempDir()
	flk := flock.New(lockPath(dir))
	ok, err := flk.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer flk.Unlock() //nolint:errcheck

	err = Init(*DefaultConfig(), dir)
	require.ErrorIs(t, err, ErrOpened)
}

func TestUpdateConfigOnDisk(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Relay.Relays = []string{"wss://relay.example/"}
	cfg.Bridge.DefaultRelay = ""
	require.NoError(t, Init(*cfg, dir))

	require.NoError(t, UpdateConfig(dir))

	updated, err := LoadConfig(configPath(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://relay.example/"}, updated.Relay.Relays)
	// empty values are filled from the defaults
	assert.Equal(t, DefaultConfig().Bridge.DefaultRelay, updated.Bridge.DefaultRelay)
}
