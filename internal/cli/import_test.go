package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focal/internal/store"
)

// historyDepth reads the persisted undo/redo depths straight from the
// database.
func historyDepth(t *testing.T, opts *RootOptions) (int, int) {
	t.Helper()
	db, err := store.Open(opts.Database)
	require.NoError(t, err)
	defer db.Close()
	past, future, err := db.HistoryDepth(context.Background())
	require.NoError(t, err)
	return past, future
}

// exportTo writes the document in opts to a snapshot file and returns its
// path.
func exportTo(t *testing.T, opts *RootOptions, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	cmd := NewExportCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())
	return path
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	opts := testOpts(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format": "focal-export",`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewImportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import rejected")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E200]")
	assert.Contains(t, buf.String(), "not valid JSON")
}

func TestImportRejectsUnsupportedVersion(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "solo")
	path := exportTo(t, opts, "backup.json")

	// Rewrite the exported version to one this build cannot read. The
	// schema allows any int there; the version gate is a separate check.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(raw, &env))
	env["state"].(map[string]any)["version"] = 99
	edited, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, edited, 0o644))

	buf := &bytes.Buffer{}
	cmd := NewImportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E203]")
	assert.Contains(t, buf.String(), "schema version 99")

	// A rejected file changes nothing.
	doc := loadDoc(t, opts)
	assert.Len(t, doc.Tasks, 1)
	past, future := historyDepth(t, opts)
	assert.Equal(t, 1, past)
	assert.Equal(t, 0, future)
}

func TestImportMissingFile(t *testing.T) {
	opts := testOpts(t)

	cmd := NewImportCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read snapshot")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportMergesDocuments(t *testing.T) {
	mine := testOpts(t)
	seedTasks(t, mine, "mine")
	theirs := testOpts(t)
	seedTasks(t, theirs, "theirs")
	path := exportTo(t, theirs, "theirs.json")

	buf := &bytes.Buffer{}
	cmd := NewImportCommand(mine)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Imported "+path)
	assert.Contains(t, buf.String(), "2 task(s) in the document")

	doc := loadDoc(t, mine)
	require.Len(t, doc.Tasks, 2)
	titles := make(map[string]bool)
	for _, task := range doc.Tasks {
		titles[task.Title] = true
	}
	assert.True(t, titles["mine"])
	assert.True(t, titles["theirs"])

	// Importing is an adoption boundary: undo history does not cross it.
	past, future := historyDepth(t, mine)
	assert.Equal(t, 0, past)
	assert.Equal(t, 0, future)
}

func TestImportIdenticalSnapshotIsNoop(t *testing.T) {
	opts := testOpts(t)
	seedTasks(t, opts, "solo")
	path := exportTo(t, opts, "backup.json")

	buf := &bytes.Buffer{}
	cmd := NewImportCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Import matched the current document; nothing to do.")

	// No adoption happened, so the seed's undo level survives.
	past, future := historyDepth(t, opts)
	assert.Equal(t, 1, past)
	assert.Equal(t, 0, future)
}

func TestImportJSON(t *testing.T) {
	mine := testOpts(t)
	mine.Format = "json"
	seedTasks(t, mine, "mine")
	theirs := testOpts(t)
	seedTasks(t, theirs, "theirs")
	path := exportTo(t, theirs, "theirs.json")

	buf := &bytes.Buffer{}
	cmd := NewImportCommand(mine)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["changed"])
	assert.Equal(t, float64(2), data["tasks"])
}
