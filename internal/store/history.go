package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/focal/internal/journal"
	"github.com/roach88/focal/internal/state"
)

// PushHistory records prev as the newest undo level and clears the redo
// stack, the persisted twin of journal.Push: a fresh edit forks history and
// the previously undone branch is gone. The undo stack is trimmed to
// journal.DefaultCapacity, oldest first.
//
// Callers pass the document that was current BEFORE the mutation, and skip
// the call entirely when an operation was a no-op.
func (s *Store) PushHistory(ctx context.Context, prev *state.State) error {
	body, err := state.MarshalCanonical(prev)
	if err != nil {
		return fmt.Errorf("push history: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("push history: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE stack = 'future'`); err != nil {
		return fmt.Errorf("push history: clear redo: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (stack, body) VALUES ('past', ?)
	`, string(body)); err != nil {
		return fmt.Errorf("push history: insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE stack = 'past' AND seq NOT IN (
			SELECT seq FROM history WHERE stack = 'past'
			ORDER BY seq DESC LIMIT ?
		)
	`, journal.DefaultCapacity)
	if err != nil {
		return fmt.Errorf("push history: trim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("push history: commit: %w", err)
	}
	return nil
}

// UndoHistory steps back one level: cur moves onto the redo stack and the
// newest past document comes back. found is false when there is nothing
// to undo.
func (s *Store) UndoHistory(ctx context.Context, cur *state.State) (st *state.State, found bool, err error) {
	return s.popHistory(ctx, cur, "past", "future")
}

// RedoHistory steps forward over the newest undone document. found is
// false when there is nothing to redo.
func (s *Store) RedoHistory(ctx context.Context, cur *state.State) (st *state.State, found bool, err error) {
	return s.popHistory(ctx, cur, "future", "past")
}

// popHistory pops the newest document off the from stack and pushes cur
// onto the to stack, in one transaction. Undo and redo are the same move
// with the stacks swapped.
func (s *Store) popHistory(ctx context.Context, cur *state.State, from, to string) (*state.State, bool, error) {
	curBody, err := state.MarshalCanonical(cur)
	if err != nil {
		return nil, false, fmt.Errorf("pop history: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("pop history: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	var body string
	err = tx.QueryRowContext(ctx, `
		SELECT seq, body FROM history WHERE stack = ?
		ORDER BY seq DESC LIMIT 1
	`, from).Scan(&seq, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pop history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE seq = ?`, seq); err != nil {
		return nil, false, fmt.Errorf("pop history: delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (stack, body) VALUES (?, ?)
	`, to, string(curBody)); err != nil {
		return nil, false, fmt.Errorf("pop history: insert: %w", err)
	}

	st := &state.State{}
	if err := json.Unmarshal([]byte(body), st); err != nil {
		return nil, false, fmt.Errorf("pop history: decode: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("pop history: commit: %w", err)
	}
	return st, true, nil
}

// ResetHistory drops both stacks. Called when a foreign document takes
// over: history recorded against the old document must not apply to the
// new one.
func (s *Store) ResetHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

// HistoryDepth returns the persisted (undo, redo) stack depths.
func (s *Store) HistoryDepth(ctx context.Context) (past, future int, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stack, COUNT(*) FROM history GROUP BY stack
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("history depth: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stack string
		var n int
		if err := rows.Scan(&stack, &n); err != nil {
			return 0, 0, fmt.Errorf("history depth: scan: %w", err)
		}
		switch stack {
		case "past":
			past = n
		case "future":
			future = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("history depth: %w", err)
	}
	return past, future, nil
}
