package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focal/internal/snapshot"
)

func TestExportToStdout(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "backed up")

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var env snapshot.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, snapshot.Format, env.Format)
	require.NotNil(t, env.State)
	assert.Len(t, env.State.Tasks, 1)
}

func TestExportToFile(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "backed up")
	path := filepath.Join(t.TempDir(), "backup.json")

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Exported 1 task(s) to "+path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = snapshot.Import(raw)
	require.NoError(t, err, "export output must round-trip through import")
}

func TestExportDoesNotWakeSnoozes(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "napper")

	deferCmd := NewDeferCommand(opts)
	deferCmd.SetOut(&bytes.Buffer{})
	deferCmd.SetArgs([]string{"-d", "1ms"})
	require.NoError(t, deferCmd.Execute())

	time.Sleep(20 * time.Millisecond) // the snooze is overdue by now

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	// The backup is the persisted document verbatim, overdue snoozes
	// included; only mutating commands wake them.
	var env snapshot.Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Len(t, env.State.SnoozedIDs, 1)

	doc := loadDoc(t, opts)
	assert.Len(t, doc.SnoozedIDs, 1)
}

func TestExportJSONConfirmation(t *testing.T) {
	opts := testOpts(t)
	opts.Format = "json"
	seedTasks(t, opts, "backed up")
	path := filepath.Join(t.TempDir(), "backup.json")

	buf := &bytes.Buffer{}
	cmd := NewExportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, path, data["path"])
	assert.EqualValues(t, 1, data["tasks"])
}
