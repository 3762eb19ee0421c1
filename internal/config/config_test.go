package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateCollectsAllFailures(t *testing.T) {
	cfg := Default()
	cfg.Version = 99
	cfg.Logging.Level = "verbose"
	cfg.Engine.ConfidenceShort = 1.5
	cfg.Learning.DecayRate = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, field := range []string{"version", "logging.level", "engine.confidence_short", "learning.decay_rate"} {
		assert.Contains(t, msg, field)
	}
}

func TestValidateFileOutputRequiresPath(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "file"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.file_path")
}

func TestValidateIPCSocketRequiredWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.IPC.Enabled = true
	cfg.IPC.SocketPath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ipc.socket_path")
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.toml"))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = 1

[engine]
min_word_length = 6
confidence_long = 0.95
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Engine.MinWordLength)
	assert.Equal(t, 0.95, cfg.Engine.ConfidenceLong)
	// Unspecified sections keep their defaults.
	assert.Equal(t, Default().Scheduler, cfg.Scheduler)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\nengine:\n  suppression_seconds: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.SuppressionWindow())
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"version": 1, "logging": {"level": "debug"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 42\n"), 0o600))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LAYOUTD_LOG_LEVEL", "debug")
	t.Setenv("LAYOUTD_SOCKET", "/tmp/test.sock")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/test.sock", cfg.IPC.SocketPath)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Engine.SuppressionWords = 7
	require.NoError(t, Save(cfg, path))

	loaded, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Engine.SuppressionWords)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, cfg.Validate())

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(Default(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())
	defer l.Close()

	cfg := Default()
	cfg.Engine.MinWordLength = 8
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-changed:
		assert.Equal(t, 8, got.Engine.MinWordLength)
		assert.Equal(t, 8, l.Config().Engine.MinWordLength)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatchKeepsOldConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(Default(), path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	require.NoError(t, os.WriteFile(path, []byte("version = 42\n"), 0o600))

	select {
	case err := <-l.Errors():
		assert.True(t, strings.Contains(err.Error(), "version"))
	case <-time.After(3 * time.Second):
		t.Fatal("watch loop never reported the bad reload")
	}
	assert.Equal(t, Version, l.Config().Version)
}

func TestDirHonorsEnv(t *testing.T) {
	t.Setenv("LAYOUTD_DIR", "/custom/dir")
	assert.Equal(t, "/custom/dir", Dir())
	assert.Equal(t, "/custom/dir/config.toml", DefaultPath())
}
