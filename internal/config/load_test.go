package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
base_dir = "/srv/files"
start_dir = "/srv/files/inbox"
host = "0.0.0.0"
port = 9000
allow_outside_root = true

[engine]
workers = 16
queue_capacity = 5000
bandwidth_limit = "50MB/s"
task_ttl = "30m"

[logging]
log_level = "debug"
log_format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/files", cfg.BaseDir)
	assert.Equal(t, "/srv/files/inbox", cfg.StartDir)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.AllowOutsideRoot)
	assert.Equal(t, 16, cfg.Engine.Workers)
	assert.Equal(t, 5000, cfg.Engine.QueueCapacity)
	assert.Equal(t, "50MB/s", cfg.Engine.BandwidthLimit)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `port = 9999`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, defaultHost, cfg.Host)
	assert.Equal(t, defaultQueueCapacity, cfg.Engine.QueueCapacity)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
	assert.False(t, cfg.AllowOutsideRoot)
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, `prot = 9000`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "prot"`)
	assert.Contains(t, err.Error(), `did you mean "port"`)
}

func TestLoadUnknownNestedKey(t *testing.T) {
	path := writeConfig(t, "[engine]\nworker = 4\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "engine.workers"`)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~", cfg.BaseDir)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8001, cfg.Port)
}

func TestResolvePrecedence(t *testing.T) {
	path := writeConfig(t, `
base_dir = "/from/file"
port = 9000
`)

	base := "/from/cli"
	port := 7777

	cfg, err := Resolve(
		EnvOverrides{BaseDir: "/from/env", Port: 8888},
		CLIOverrides{ConfigPath: path, BaseDir: &base, Port: &port},
	)
	require.NoError(t, err)

	// CLI beats env beats file.
	assert.Equal(t, "/from/cli", cfg.BaseDir)
	assert.Equal(t, 7777, cfg.Port)
}

func TestResolveEnvBeatsFile(t *testing.T) {
	path := writeConfig(t, `base_dir = "/from/file"`)

	cfg, err := Resolve(EnvOverrides{BaseDir: "/from/env"}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.BaseDir)
}

func TestResolveStartDirDefaultsToBaseDir(t *testing.T) {
	path := writeConfig(t, `base_dir = "/srv/files"`)

	cfg, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "/srv/files", cfg.StartDir)
}

func TestResolveExpandsHome(t *testing.T) {
	path := writeConfig(t, `base_dir = "~"`)

	cfg, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, cfg.BaseDir)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseDir, "/env/base")
	t.Setenv(EnvPort, "4242")

	env := ReadEnvOverrides()
	assert.Equal(t, "/env/base", env.BaseDir)
	assert.Equal(t, 4242, env.Port)
}

func TestReadEnvOverridesBadPortIgnored(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")

	env := ReadEnvOverrides()
	assert.Zero(t, env.Port)
}
