package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/focal/internal/state"
)

// Save replaces the persisted document wholesale and appends an audit entry.
// Both happen in one transaction: the audit log never records a write that
// did not land.
func (s *Store) Save(ctx context.Context, st *state.State) error {
	body, err := state.MarshalCanonical(st)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	digest := state.DigestBytes(body)
	writtenAt := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document (id, body, rev, updated_at, client_id, digest, written_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body       = excluded.body,
			rev        = excluded.rev,
			updated_at = excluded.updated_at,
			client_id  = excluded.client_id,
			digest     = excluded.digest,
			written_at = excluded.written_at
	`,
		string(body),
		st.Rev,
		st.UpdatedAt,
		st.ClientID,
		digest,
		writtenAt,
	)
	if err != nil {
		return fmt.Errorf("save document: replace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO writes (rev, updated_at, client_id, digest, written_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		st.Rev,
		st.UpdatedAt,
		st.ClientID,
		digest,
		writtenAt,
	)
	if err != nil {
		return fmt.Errorf("save document: audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document: commit: %w", err)
	}
	return nil
}
