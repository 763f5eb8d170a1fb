package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = `
discord:
  token: ${TEST_DISCORD_TOKEN}
  client_id: "123"
commands:
  allowed_imports: [fmt, strings]
sync:
  timeout: 5s
`

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DISCORD_TOKEN", "secret-token")

	c, err := LoadFromBytes([]byte(base))
	require.NoError(t, err)

	assert.Equal(t, "secret-token", c.Discord.Token)
	assert.Equal(t, "123", c.Discord.ClientID)
	assert.Equal(t, 5*time.Second, c.Sync.Timeout)
	assert.Equal(t, []string{"fmt", "strings"}, c.Commands.AllowedImports)
}

func TestMergeFileOverlays(t *testing.T) {
	c, err := LoadFromBytes([]byte(base))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discord:\n  guild_id: \"999\"\nstore:\n  driver: sqlite\n"), 0644))
	require.NoError(t, c.MergeFile(path))

	assert.Equal(t, "123", c.Discord.ClientID, "unset keys keep their base value")
	assert.Equal(t, "999", c.Discord.GuildID)
	assert.Equal(t, DriverSQLite, c.Store.Driver)

	require.NoError(t, c.MergeFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestResolveDerivesPaths(t *testing.T) {
	dir := t.TempDir()
	var c Config
	c.DataDir = dir
	require.NoError(t, c.Resolve())

	assert.Equal(t, filepath.Join(dir, "commands"), c.Commands.Dir)
	assert.Equal(t, filepath.Join(dir, "config.json"), c.Store.Path)
	assert.Equal(t, DriverFile, c.Store.Driver)
	assert.Equal(t, 30*time.Second, c.Sync.Timeout)

	c = Config{DataDir: dir}
	c.Store.Driver = DriverSQLite
	require.NoError(t, c.Resolve())
	assert.Equal(t, filepath.Join(dir, "salafibot.db"), c.Store.Path)

	c = Config{DataDir: dir}
	c.Store.Driver = DriverRedis
	assert.Error(t, c.Resolve(), "redis needs a url")
	c.Store.URL = "redis://localhost:6379/0"
	require.NoError(t, c.Resolve())
	assert.Empty(t, c.Store.Path)

	c = Config{DataDir: dir}
	c.Store.Driver = "etcd"
	assert.Error(t, c.Resolve())
}

func TestValidateRemote(t *testing.T) {
	var c Config
	err := c.ValidateRemote(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	assert.Contains(t, err.Error(), "GUILD_ID")

	c.Discord.Token = "t"
	c.Discord.ClientID = "c"
	assert.NoError(t, c.ValidateRemote(true))
	assert.Error(t, c.ValidateRemote(false))
}
