package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "focal", cmd.Use)
	assert.Contains(t, cmd.Long, "single-focus")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"add", "done", "defer", "skip", "next", "list", "move", "focus",
		"swap", "demote", "restore", "delete", "clear-history", "undo",
		"redo", "tick", "export", "import", "log", "watch", "serve",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestStatusAliasResolvesToNext(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)
	assert.Equal(t, "next", subCmd.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"data-dir", "db", "channel", "remote", "account", "client", "tick-interval"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s should exist", name)
	}

	accountFlag := cmd.PersistentFlags().Lookup("account")
	assert.Equal(t, "default", accountFlag.DefValue)
}

func TestDeferCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	deferCmd, _, err := cmd.Find([]string{"defer"})
	require.NoError(t, err)

	durationFlag := deferCmd.Flags().Lookup("duration")
	require.NotNil(t, durationFlag)
	assert.Equal(t, "d", durationFlag.Shorthand)
}

func TestMoveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	moveCmd, _, err := cmd.Find([]string{"move"})
	require.NoError(t, err)

	toFlag := moveCmd.Flags().Lookup("to")
	require.NotNil(t, toFlag)
	// --to is required, so default is empty
	assert.Equal(t, "", toFlag.DefValue)
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)

	laneFlag := listCmd.Flags().Lookup("lane")
	require.NotNil(t, laneFlag)
	assert.Equal(t, "all", laneFlag.DefValue)
}

func TestFocusCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	focusCmd, _, err := cmd.Find([]string{"focus"})
	require.NoError(t, err)

	fromQueueFlag := focusCmd.Flags().Lookup("from-queue")
	require.NotNil(t, fromQueueFlag)
	assert.Equal(t, "false", fromQueueFlag.DefValue)
}

func TestLogCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	logCmd, _, err := cmd.Find([]string{"log"})
	require.NoError(t, err)

	limitFlag := logCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "n", limitFlag.Shorthand)
	assert.Equal(t, "20", limitFlag.DefValue)
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	logFileFlag := watchCmd.Flags().Lookup("log-file")
	require.NotNil(t, logFileFlag)
	assert.Equal(t, "", logFileFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "127.0.0.1:7341", addrFlag.DefValue)

	logFileFlag := serveCmd.Flags().Lookup("log-file")
	require.NotNil(t, logFileFlag)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "focal")
	assert.Contains(t, cmd.Long, "task scheduler")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	t.Setenv("FOCAL_CONFIG", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "next"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
