package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextEmptyDocument(t *testing.T) {
	opts := testOpts(t)

	buf := &bytes.Buffer{}
	cmd := NewNextCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Nothing in focus.")
	assert.Contains(t, buf.String(), "Queues: 0 woken, 0 ready, 0 snoozed, 0 done")
}

func TestNextShowsFocusAndUpcomingWake(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "sleeper")

	deferCmd := NewDeferCommand(opts)
	deferCmd.SetOut(&bytes.Buffer{})
	deferCmd.SetArgs([]string{"-d", "1h"})
	require.NoError(t, deferCmd.Execute())

	addCmd := NewAddCommand(opts)
	addCmd.SetOut(&bytes.Buffer{})
	addCmd.SetArgs([]string{"worker"})
	require.NoError(t, addCmd.Execute())

	buf := &bytes.Buffer{}
	cmd := NewNextCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Focus:")
	assert.Contains(t, buf.String(), "worker")
	assert.Contains(t, buf.String(), "Next wake: sleeper at")
}

func TestNextWakesDueSnoozesAndPersists(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "napper")

	deferCmd := NewDeferCommand(opts)
	deferCmd.SetOut(&bytes.Buffer{})
	deferCmd.SetArgs([]string{"-d", "1ms"})
	require.NoError(t, deferCmd.Execute())

	time.Sleep(20 * time.Millisecond)

	buf := &bytes.Buffer{}
	cmd := NewNextCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Woke 1 task(s).")
	assert.Contains(t, buf.String(), "napper")

	doc := loadDoc(t, opts)
	assert.Empty(t, doc.SnoozedIDs)
	assert.Equal(t, "napper", doc.Task(doc.CurrentID).Title)
}

func TestNextJSON(t *testing.T) {
	opts := testOpts(t)
	opts.Format = "json"
	seedTasks(t, opts, "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewNextCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	current := data["current"].(map[string]any)
	assert.Equal(t, "second", current["title"])
	assert.EqualValues(t, 1, data["ready"])
}
