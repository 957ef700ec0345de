package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return NewLoaderWithViper(viper.New())
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.NotNil(t, l)
	assert.Same(t, viper.GetViper(), l.GetViper())
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := newTestLoader(t).Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ACGOLD", cfg.Scan.Mode)
}

func TestLoad_SearchPathFile(t *testing.T) {
	l := newTestLoader(t)
	require.NoError(t, os.WriteFile(ConfigFileName+".yaml", []byte(`
log_level: debug
scan:
  mode: bmd
  workers: 2
  languages: [eng, deu]
export:
  search_address: 1 Old Road
server:
  port: 9090
  rate_limit:
    enabled: true
    requests_per_minute: 5
`), 0o600))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "bmd", cfg.Scan.Mode)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, []string{"eng", "deu"}, cfg.Scan.Languages)
	assert.Equal(t, "1 Old Road", cfg.Export.SearchAddress)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Server.RateLimit.RequestsPerMinute)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().Scan.TopLines, cfg.Scan.TopLines)
	assert.NotEmpty(t, l.GetConfigFileUsed())
}

func TestLoadWithFile(t *testing.T) {
	l := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  dir: /data/scans\n"), 0o600))

	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/scans", cfg.Store.Dir)
	assert.Equal(t, path, l.GetConfigFileUsed())
}

func TestLoadWithFile_Errors(t *testing.T) {
	_, err := newTestLoader(t).LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scan: [unclosed"), 0o600))
	_, err = newTestLoader(t).LoadWithFile(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("scan:\n  mode: other\n"), 0o600))
	_, err = newTestLoader(t).LoadWithFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadWithoutValidation(t *testing.T) {
	l := newTestLoader(t)
	require.NoError(t, os.WriteFile(ConfigFileName+".yaml", []byte("log_level: loud\n"), 0o600))

	cfg, err := l.LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.LogLevel)
}

func TestEnvironmentOverride(t *testing.T) {
	l := newTestLoader(t)
	t.Setenv("TICKETSCAN_LOG_LEVEL", "error")
	t.Setenv("TICKETSCAN_SCAN_WORKERS", "7")
	t.Setenv("TICKETSCAN_SERVER_RATE_LIMIT_REQUESTS_PER_HOUR", "42")
	t.Setenv("TICKETSCAN_EXPORT_SEARCH_ADDRESS", "2 Env Street")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Scan.Workers)
	assert.Equal(t, 42, cfg.Server.RateLimit.RequestsPerHour)
	assert.Equal(t, "2 Env Street", cfg.Export.SearchAddress)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticketscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	l := newTestLoader(t)
	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Export.SearchAddress, cfg.Export.SearchAddress)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/xdg", "ticketscan"))
	assert.Equal(t, "/etc/ticketscan", paths[len(paths)-1])
}
