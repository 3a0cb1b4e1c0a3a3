package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultHistoryFile, cfg.HistoryPath)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 400*time.Millisecond, cfg.AnimInterval)
	assert.Equal(t, 4*time.Second, cfg.ErrorDisplay)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	content := `server_url: http://extract.internal:9000
history_path: /var/lib/harvest/history.db
poll_interval: 250ms
verbose: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harvest.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://extract.internal:9000", cfg.ServerURL)
	assert.Equal(t, "/var/lib/harvest/history.db", cfg.HistoryPath)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "harvest.yaml", GetConfigFileUsed())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	content := "server_url: http://from-file:9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harvest.yaml"), []byte(content), 0o644))
	t.Setenv("HARVEST_SERVER_URL", "http://from-env:9100")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9100", cfg.ServerURL)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("HARVEST_SERVER_URL", "http://from-env:9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.String("history", "", "")
	require.NoError(t, flags.Parse([]string{"--server", "http://from-flag:9200/"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:9200", cfg.ServerURL, "flag wins and trailing slash is trimmed")
	assert.Equal(t, DefaultHistoryFile, cfg.HistoryPath, "unset flags do not override")
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\n"), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, path, GetConfigFileUsed())
}
