package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/focal/internal/merge"
	"github.com/roach88/focal/internal/snapshot"
	"github.com/roach88/focal/internal/state"
)

// ImportView is the JSON shape of an import result.
type ImportView struct {
	Changed bool        `json:"changed"`
	Tasks   int         `json:"tasks"`
	Status  *StatusView `json:"status"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a snapshot envelope into the document",
		Long: `Validate a focal-export envelope and merge it into the local document.

Import is a merge, not a replacement: local tasks survive, completions
and deletions from either side stick, and queue order follows the newer
document. The envelope is validated against the snapshot schema before
anything is touched; a rejected file changes nothing and exits 1.

Importing resets undo history. The merged document is an adoption
boundary: undoing across it would throw away the imported work.

Example:
  focal import backup.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	imported, err := snapshot.Import(raw)
	if err != nil {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		var verr *snapshot.ValidationError
		if errors.As(err, &verr) {
			_ = formatter.Error(verr.Code, verr.Message, map[string]any{"field": verr.Field, "line": verr.Line})
			return WrapExitError(ExitFailure, "import rejected", err)
		}
		_ = formatter.Error(snapshot.ErrMalformedPayload, err.Error(), nil)
		return WrapExitError(ExitFailure, "import rejected", err)
	}

	ctx := cmd.Context()
	s, err := OpenSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	local := s.State()
	merged := merge.Merge(local, imported)

	// An import that adds nothing must not churn the document header or
	// reset history.
	same, err := sameDocument(local, merged)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare documents", err)
	}
	if same {
		return reportNothing(opts, cmd, "Import matched the current document; nothing to do.")
	}

	// Merge allocates no metadata of its own; stamp the fold so it outranks
	// both inputs and every replica adopts it.
	merged.Stamp(s.clock.NextWriteMeta(merged.Meta()))
	next, err := s.Adopt(ctx, merged, "import")
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(&ImportView{Changed: true, Tasks: len(next.Tasks), Status: statusView(next)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d task(s) in the document.\n", path, len(next.Tasks))
	renderStatus(cmd.OutOrStdout(), next)
	return nil
}

// sameDocument reports whether two documents share canonical bytes.
func sameDocument(a, b *state.State) (bool, error) {
	da, err := state.Digest(a)
	if err != nil {
		return false, err
	}
	db, err := state.Digest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
