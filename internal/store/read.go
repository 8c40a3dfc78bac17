package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/focal/internal/state"
)

// Load reads the persisted document. found is false when the database has
// never been written; the caller starts from a fresh State.
func (s *Store) Load(ctx context.Context) (st *state.State, found bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx, `
		SELECT body FROM document WHERE id = 1
	`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load document: %w", err)
	}

	st = &state.State{}
	if err := json.Unmarshal([]byte(body), st); err != nil {
		return nil, false, fmt.Errorf("load document: decode: %w", err)
	}
	return st, true, nil
}

// WriteRecord is one audit log entry: the header of a persisted document.
type WriteRecord struct {
	Seq       int64  `json:"seq"`
	Rev       int64  `json:"rev"`
	UpdatedAt int64  `json:"updatedAt"`
	ClientID  string `json:"clientId"`
	Digest    string `json:"digest"`
	WrittenAt int64  `json:"writtenAt"`
}

// Writes returns the most recent audit entries, newest first. limit <= 0
// means no limit.
func (s *Store) Writes(ctx context.Context, limit int) ([]WriteRecord, error) {
	query := `
		SELECT seq, rev, updated_at, client_id, digest, written_at
		FROM writes
		ORDER BY seq DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query writes: %w", err)
	}
	defer rows.Close()

	records := []WriteRecord{}
	for rows.Next() {
		var r WriteRecord
		if err := rows.Scan(&r.Seq, &r.Rev, &r.UpdatedAt, &r.ClientID, &r.Digest, &r.WrittenAt); err != nil {
			return nil, fmt.Errorf("scan write record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate writes: %w", err)
	}
	return records, nil
}
