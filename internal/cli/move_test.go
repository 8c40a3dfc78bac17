package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focal/internal/state"
)

func TestMoveToWake(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "first", "second")
	queued := st.ReadyQueue[0]

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{queued, "--to", "wake"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Moved first to wake")

	doc := loadDoc(t, opts)
	assert.Contains(t, doc.WokenQueue, queued)
	assert.Empty(t, doc.ReadyQueue)
}

func TestMoveToReadyHead(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "first", "second", "third")
	last := st.ReadyQueue[1] // "second"

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{last, "--to", "ready-head"})

	require.NoError(t, cmd.Execute())

	doc := loadDoc(t, opts)
	require.Len(t, doc.ReadyQueue, 2)
	assert.Equal(t, last, doc.ReadyQueue[0])
}

func TestMoveSnoozedLosesDeadline(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "sleeper")
	id := st.CurrentID

	deferCmd := NewDeferCommand(opts)
	deferCmd.SetOut(&bytes.Buffer{})
	deferCmd.SetArgs([]string{"-d", "1h"})
	require.NoError(t, deferCmd.Execute())

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{id, "--to", "ready"})

	require.NoError(t, cmd.Execute())

	doc := loadDoc(t, opts)
	assert.Empty(t, doc.SnoozedIDs)
	assert.Nil(t, doc.Task(id).SnoozeUntil)
	// The focus slot was empty, so the moved task refills it immediately.
	assert.Equal(t, state.LaneCurrent, doc.LaneOf(id))
}

func TestMoveCurrentRejected(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "focused")

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{st.CurrentID, "--to", "ready"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use demote or swap")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMoveCompletedRejected(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "finished")
	id := st.CurrentID

	done := NewDoneCommand(opts)
	done.SetOut(&bytes.Buffer{})
	done.SetArgs([]string{})
	require.NoError(t, done.Execute())

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{id, "--to", "ready"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore it first")
}

func TestMoveAlreadyThere(t *testing.T) {
	opts := testOpts(t)
	st := seedTasks(t, opts, "first", "second")
	queued := st.ReadyQueue[0]

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{queued, "--to", "ready"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Already there.")
}

func TestMoveInvalidDestination(t *testing.T) {
	opts := testOpts(t)

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"whatever", "--to", "sideways"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid destination")
}

func TestMoveRequiresDestination(t *testing.T) {
	opts := testOpts(t)

	buf := &bytes.Buffer{}
	cmd := NewMoveCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"whatever"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
