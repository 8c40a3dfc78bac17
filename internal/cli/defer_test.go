package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferWithDuration(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "solo")

	buf := &bytes.Buffer{}
	cmd := NewDeferCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-d", "25m"})

	before := time.Now().UnixMilli()
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Deferred solo until")

	doc := loadDoc(t, opts)
	assert.Empty(t, doc.CurrentID)
	require.Len(t, doc.SnoozedIDs, 1)
	napper := doc.Task(doc.SnoozedIDs[0])
	require.NotNil(t, napper.SnoozeUntil)
	assert.GreaterOrEqual(t, *napper.SnoozeUntil, before+(24*time.Minute).Milliseconds())
}

func TestDeferQuickRotatesBehindTheQueue(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewDeferCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Deferred second behind the queue")
	assert.Contains(t, buf.String(), "Focus:")

	doc := loadDoc(t, opts)
	assert.Equal(t, "first", doc.Task(doc.CurrentID).Title)
	require.Len(t, doc.ReadyQueue, 1)
	assert.Equal(t, "second", doc.Task(doc.ReadyQueue[0]).Title)
}

func TestDeferQuickSingletonSleeps(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "solo")

	buf := &bytes.Buffer{}
	cmd := NewDeferCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	// Rotating a queue of one would hand the same task straight back, so the
	// singleton sleeps briefly instead.
	assert.Contains(t, buf.String(), "Deferred solo until")

	doc := loadDoc(t, opts)
	assert.Empty(t, doc.CurrentID)
	assert.Len(t, doc.SnoozedIDs, 1)
}

func TestDeferNothingInFocus(t *testing.T) {
	opts := testOpts(t)

	buf := &bytes.Buffer{}
	cmd := NewDeferCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Nothing in focus to defer.")
}

func TestDeferRejectsNonPositiveDuration(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "solo")

	buf := &bytes.Buffer{}
	cmd := NewDeferCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"-d", "-5m"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration must be positive")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSkipIsQuickDefer(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewSkipCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	doc := loadDoc(t, opts)
	assert.Equal(t, "first", doc.Task(doc.CurrentID).Title)
}
