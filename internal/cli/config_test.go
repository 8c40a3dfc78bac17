package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearFocalEnv isolates a test from the developer's real FOCAL_*
// environment and config file. Empty values read as unset.
func clearFocalEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FOCAL_CONFIG", "FOCAL_DATA_DIR", "FOCAL_DATABASE", "FOCAL_CHANNEL",
		"FOCAL_REMOTE", "FOCAL_ACCOUNT", "FOCAL_CLIENT", "FOCAL_TICK_INTERVAL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearFocalEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.DataDir)
	assert.Empty(t, cfg.Database)
	assert.Empty(t, cfg.Account)
	assert.Zero(t, cfg.TickInterval)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	clearFocalEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /srv/focal
account: team
tick_interval: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("FOCAL_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/srv/focal", cfg.DataDir)
	assert.Equal(t, "team", cfg.Account)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	clearFocalEnv(t)
	t.Setenv("FOCAL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigImplicitFileAbsent(t *testing.T) {
	// No config file anywhere is the common case, not an error.
	clearFocalEnv(t)

	_, err := LoadConfig()
	require.NoError(t, err)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearFocalEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: from-file\n"), 0o644))
	t.Setenv("FOCAL_CONFIG", path)
	t.Setenv("FOCAL_ACCOUNT", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Account)
}

func TestLoadConfigBadFile(t *testing.T) {
	clearFocalEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{ not yaml"), 0o644))
	t.Setenv("FOCAL_CONFIG", path)

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestDefaultDataDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)
	assert.Equal(t, filepath.Join(tmp, "focal"), DefaultDataDir())

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", tmp)
	assert.Equal(t, filepath.Join(tmp, ".local", "share", "focal"), DefaultDataDir())
}

// rootFlagSet registers the root's persistent flags against o the way
// NewRootCommand does, so resolve sees the same Changed() results.
func rootFlagSet(o *RootOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("focal", pflag.ContinueOnError)
	fs.StringVar(&o.DataDir, "data-dir", "", "")
	fs.StringVar(&o.Database, "db", "", "")
	fs.StringVar(&o.Channel, "channel", "", "")
	fs.StringVar(&o.Remote, "remote", "", "")
	fs.StringVar(&o.Account, "account", "default", "")
	fs.StringVar(&o.Client, "client", "", "")
	fs.DurationVar(&o.TickInterval, "tick-interval", 0, "")
	return fs
}

func TestResolveFlagBeatsEnv(t *testing.T) {
	clearFocalEnv(t)
	t.Setenv("FOCAL_DATABASE", "/env/focal.db")

	o := &RootOptions{}
	fs := rootFlagSet(o)
	require.NoError(t, fs.Parse([]string{"--db", "/flag/focal.db"}))

	require.NoError(t, o.resolve(fs))
	assert.Equal(t, "/flag/focal.db", o.Database)
}

func TestResolveEnvBeatsDefault(t *testing.T) {
	clearFocalEnv(t)
	t.Setenv("FOCAL_DATABASE", "/env/focal.db")
	t.Setenv("FOCAL_ACCOUNT", "alice")

	o := &RootOptions{}
	fs := rootFlagSet(o)
	require.NoError(t, fs.Parse(nil))

	require.NoError(t, o.resolve(fs))
	assert.Equal(t, "/env/focal.db", o.Database)
	assert.Equal(t, "alice", o.Account)
}

func TestResolveDerivesDatabaseFromDataDir(t *testing.T) {
	clearFocalEnv(t)
	tmp := t.TempDir()

	o := &RootOptions{}
	fs := rootFlagSet(o)
	require.NoError(t, fs.Parse([]string{"--data-dir", tmp}))

	require.NoError(t, o.resolve(fs))
	assert.Equal(t, tmp, o.DataDir)
	assert.Equal(t, filepath.Join(tmp, "focal.db"), o.Database)
}
