package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickNothingDue(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "active")

	buf := &bytes.Buffer{}
	cmd := NewTickCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Woke 0 task(s).")
}

func TestTickWakesDueSnoozes(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "napper")

	deferCmd := NewDeferCommand(opts)
	deferCmd.SetOut(&bytes.Buffer{})
	deferCmd.SetArgs([]string{"-d", "1ms"})
	require.NoError(t, deferCmd.Execute())

	time.Sleep(20 * time.Millisecond)

	buf := &bytes.Buffer{}
	cmd := NewTickCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Woke 1 task(s).")

	doc := loadDoc(t, opts)
	assert.Empty(t, doc.SnoozedIDs)
}

func TestTickJSON(t *testing.T) {
	opts := testOpts(t)
	opts.Format = "json"

	buf := &bytes.Buffer{}
	cmd := NewTickCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 0, data["woken"])
}
