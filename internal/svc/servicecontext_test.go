package svc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salafibot/salafibot/internal/config"
	"github.com/salafibot/salafibot/internal/defaults"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/remote"
)

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	t.Setenv("SALAFIBOT_KEYRING_DISABLED", "1")
	var c config.Config
	c.DataDir = t.TempDir()
	c.Store.Driver = driver
	c.Discord.ClientID = "app"
	c.Discord.GuildID = "guild"
	require.NoError(t, c.Resolve())
	require.NoError(t, defaults.Seed(c.DataDir, false))
	return c
}

func TestServiceContextWithoutRemote(t *testing.T) {
	s, err := NewServiceContext(testConfig(t, config.DriverFile))
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Remote)
	assert.Nil(t, s.Engine)

	res, err := s.Admin.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Loaded, "seed commands load")
	assert.Empty(t, res.Failed)

	out, err := s.Router.Dispatch(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Pong")

	_, err = os.Stat(s.Config.Store.Path)
	assert.NoError(t, err, "bootstrap persisted the catalog")
}

func TestServiceContextSQLiteAndInjectedRemote(t *testing.T) {
	c := testConfig(t, config.DriverSQLite)
	mem := remote.NewMemoryStore()

	s, err := NewServiceContext(c, WithRemote(mem))
	require.NoError(t, err)
	_, err = s.Admin.Bootstrap(context.Background())
	require.NoError(t, err)

	res, err := s.Admin.DeployAll(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, len(s.Table.Names()), res.Sync.Count)
	require.NoError(t, s.Close())

	assert.Equal(t, filepath.Join(c.DataDir, defaults.DatabaseFile), c.Store.Path)

	reopened, err := NewServiceContext(c, WithRemote(mem))
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Registry.Has("ping"), "catalog survives in sqlite")
}

func TestServiceContextRedisSharesCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	c := testConfig(t, config.DriverFile)
	c.Store.Driver = config.DriverRedis
	c.Store.URL = "redis://" + mr.Addr()

	first, err := NewServiceContext(c)
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Admin.Create("hadith", "islamic")
	require.NoError(t, err)

	second, err := NewServiceContext(c)
	require.NoError(t, err)
	defer second.Close()
	rec, err := second.Admin.Get("hadith")
	require.NoError(t, err)
	assert.Equal(t, "islamic", rec.Module)

	_, err = second.Admin.Create("dua", "islamic")
	require.NoError(t, err)
	_, err = second.Admin.Create("hadith", "other")
	require.ErrorIs(t, err, registry.ErrDuplicateName)

	_, err = first.Admin.Disable("dua")
	require.NoError(t, err, "first replica sees the record added by the second")
	assert.False(t, second.Registry.IsEnabled("dua"))
	assert.Equal(t, 2, first.Admin.Count())
	assert.Equal(t, 2, second.Admin.Count())
}
