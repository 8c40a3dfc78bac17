// Package replica moves whole-document snapshots between replicas of the
// same account: separate processes on one machine share a file, same-process
// tabs share a bus. A channel never interprets the document beyond
// validating it; folding a received snapshot into the live document is the
// syncer's job.
//
// Channels suppress echoes: a replica does not hear its own publishes. The
// bus skips the publishing endpoint outright; the file channel compares
// digests, since the watcher cannot tell its own writes from a peer's.
// Coordination is purely through snapshot exchange; replicas never share
// memory.
package replica

import (
	"context"

	"github.com/roach88/focal/internal/state"
)

// Snapshot is one received document plus its content digest, so consumers
// can compare without re-hashing.
type Snapshot struct {
	Digest string
	State  *state.State
}

// Channel is a replica-to-replica snapshot pipe.
type Channel interface {
	// Publish announces the local document to every other replica.
	Publish(ctx context.Context, st *state.State) error
	// Snapshots delivers other replicas' documents. The channel closes
	// when the Channel is closed.
	Snapshots() <-chan Snapshot
	Close() error
}
