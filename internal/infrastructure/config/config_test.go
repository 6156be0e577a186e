package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "0.0.0.0:50061", cfg.Server.GRPCAddr())
	assert.True(t, cfg.Server.GRPCEnabled)
	assert.Equal(t, 512, cfg.Server.MaxConnections)

	assert.Equal(t, 16, cfg.PipeFS.MaxPipes)
	assert.Equal(t, 64, cfg.PipeFS.MaxNameLength)
	assert.Equal(t, 256, cfg.PipeFS.BufferSize)
	assert.Equal(t, 128, cfg.VFS.MaxOpenFiles)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().PipeFS, cfg.PipeFS)
	assert.Equal(t, Default().VFS, cfg.VFS)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"GRPC_ENABLED":       "false",
		"MAX_CONNECTIONS":    "64",
		"PIPEFS_MAX_PIPES":   "4",
		"PIPEFS_MAX_NAME":    "12",
		"PIPEFS_BUFFER_SIZE": "32",
		"VFS_MAX_OPEN_FILES": "8",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_ENABLED": "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.False(t, cfg.Server.GRPCEnabled)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	assert.Equal(t, 4, cfg.PipeFS.MaxPipes)
	assert.Equal(t, 12, cfg.PipeFS.MaxNameLength)
	assert.Equal(t, 32, cfg.PipeFS.BufferSize)
	assert.Equal(t, 8, cfg.VFS.MaxOpenFiles)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)

	fsCfg := cfg.PipeFS.PipeFSOptions()
	assert.Equal(t, 4, fsCfg.MaxPipes)
	assert.Equal(t, 8, cfg.VFS.VFSOptions().MaxOpenFiles)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	t.Setenv("PIPEFS_MAX_PIPES", "many")

	_, err := Load()
	assert.Error(t, err)
	assert.Equal(t, Default(), LoadOrDefault())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "pipefs.yaml", `
pipefs:
  max_pipes: 8
  buffer_size: 16
logging:
  level: warn
`)
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.PipeFS.MaxPipes)
		assert.Equal(t, 16, cfg.PipeFS.BufferSize)
		assert.Equal(t, 64, cfg.PipeFS.MaxNameLength)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, "pipefs.toml", `
[server]
port = "7000"

[vfs]
max_open_files = 3
`)
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "7000", cfg.Server.Port)
		assert.Equal(t, 3, cfg.VFS.MaxOpenFiles)
		assert.Equal(t, 16, cfg.PipeFS.MaxPipes)
	})

	t.Run("file overrides environment", func(t *testing.T) {
		t.Setenv("PIPEFS_MAX_PIPES", "2")
		path := writeFile(t, "pipefs.yml", "pipefs:\n  max_pipes: 5\n")
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.PipeFS.MaxPipes)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, "pipefs.yaml", "pipefs:\n  buffer_size: 0\n")
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "pipefs.ini", "max_pipes=1")
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.PipeFS.MaxPipes = 0
	cfg.VFS.MaxOpenFiles = -1
	cfg.Server.MaxConnections = -1
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "max_pipes")
	assert.Contains(t, err.Error(), "max_open_files")
	assert.Contains(t, err.Error(), "max_connections")
}
