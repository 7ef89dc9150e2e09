package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.ListenAddr)
}

func TestLoad_OverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.toml")
	contents := `
[server]
listen_addr = ":9090"

[database]
dsn = "custom.db"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", c.Server.ListenAddr)
	require.Equal(t, "custom.db", c.Database.DSN)
	require.Equal(t, "JWT_SECRET", c.Auth.JWTSecretFile, "unspecified keys keep their default")
}
