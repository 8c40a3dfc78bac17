// Package syncer applies the cross-replica adoption policy to one
// replica's engine.
//
// A channel delivers full-document snapshots; per snapshot the syncer
// picks one of four outcomes: drop an echo, adopt a newer document, fold
// a newer document's facts into unsaved local work, or re-assert the
// local document over a stale one. Two rules anchor the policy: unsaved
// local edits are never discarded without the injected ConfirmReplace
// saying so, and stale or contradictory remote data is never an error,
// it just gets answered with the local document.
package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/merge"
	"github.com/roach88/focal/internal/replica"
	"github.com/roach88/focal/internal/state"
)

// Outcome says what an observed snapshot did to the local document.
type Outcome string

const (
	// OutcomeNoop means the snapshot matched local, or repeated a stale
	// document that was already answered.
	OutcomeNoop Outcome = "noop"

	// OutcomeAdopted means the remote document replaced local wholesale.
	OutcomeAdopted Outcome = "adopted"

	// OutcomeReconciled means local kept its structure, folded the remote
	// facts, and re-uploaded with metadata that outranks the remote.
	OutcomeReconciled Outcome = "reconciled"

	// OutcomeReuploaded means the snapshot was stale and the local
	// document was re-asserted over it.
	OutcomeReuploaded Outcome = "reuploaded"
)

// Syncer mirrors one engine's document over one channel.
type Syncer struct {
	engine  *engine.Engine
	channel replica.Channel
	logger  *slog.Logger

	// ConfirmReplace decides whether a newer external document may replace
	// unsaved local edits. Nil declines every time: a merge over unsaved
	// work has to be asked for, never assumed.
	ConfirmReplace func(incoming, local *state.State) bool

	mu         sync.Mutex
	lastSynced string // digest both sides agreed on last
	lastStale  string // remote+local digest pair already re-asserted
}

// New creates a syncer for e over ch. A session starts clean: the loaded
// document has, by definition, no unsaved edits.
func New(e *engine.Engine, ch replica.Channel, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{engine: e, channel: ch, logger: logger}
	if d, err := state.Digest(e.State()); err == nil {
		s.lastSynced = d
	}
	return s
}

// Run consumes the channel until ctx ends or the channel closes. Channels
// that report faults (a shared file holding contradictory bytes) get the
// local document re-asserted over the fault.
func (s *Syncer) Run(ctx context.Context) error {
	var faults <-chan error
	if fr, ok := s.channel.(interface{ Errors() <-chan error }); ok {
		faults = fr.Errors()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-s.channel.Snapshots():
			if !ok {
				return nil
			}
			s.Observe(ctx, snap)

		case err, ok := <-faults:
			if !ok {
				faults = nil
				continue
			}
			s.logger.Warn("channel fault, re-asserting local document", "error", err)
			s.Upload(ctx)
		}
	}
}

// Observe runs the adoption policy for one snapshot.
func (s *Syncer) Observe(ctx context.Context, snap replica.Snapshot) Outcome {
	local := s.engine.State()
	localDigest, err := state.Digest(local)
	if err != nil {
		s.logger.Error("digest local document", "error", err)
		return OutcomeNoop
	}

	if snap.Digest == localDigest {
		// Both sides hold the same document; whatever was unsaved is now
		// everywhere.
		s.markSynced(snap.Digest)
		return OutcomeNoop
	}

	remote := snap.State
	if !merge.Newer(remote, local) {
		return s.reassert(ctx, local, localDigest, snap)
	}

	if s.isSynced(localDigest) || s.confirm(remote, local) {
		s.engine.AdoptExternal(remote, "channel")
		s.markSynced(snap.Digest)
		return OutcomeAdopted
	}

	return s.reconcile(ctx, local, remote)
}

// reassert answers a stale snapshot with the local document. Each
// (remote, local) pair is answered once; repeating the upload on every
// bounce would let two stubborn replicas ping-pong forever.
func (s *Syncer) reassert(ctx context.Context, local *state.State, localDigest string, snap replica.Snapshot) Outcome {
	// The next local write must outrank what was just seen.
	s.engine.Clock().ObserveRev(snap.State.Rev)

	pair := snap.Digest + "+" + localDigest
	s.mu.Lock()
	repeat := s.lastStale == pair
	s.lastStale = pair
	s.mu.Unlock()
	if repeat {
		s.logger.Debug("stale snapshot repeated, already answered",
			"remote_rev", snap.State.Rev, "local_rev", local.Rev)
		return OutcomeNoop
	}

	s.logger.Info("ignoring stale snapshot, re-asserting local document",
		"remote_rev", snap.State.Rev, "local_rev", local.Rev)
	s.upload(ctx, local, localDigest)
	return OutcomeReuploaded
}

// reconcile keeps the local structure, folds the remote facts, and stamps
// metadata that outranks both sides so the standoff cannot recur.
func (s *Syncer) reconcile(ctx context.Context, local, remote *state.State) Outcome {
	s.logger.Info("keeping unsaved local edits, folding remote facts",
		"remote_rev", remote.Rev, "local_rev", local.Rev)

	s.engine.Clock().ObserveRev(remote.Rev)
	merged := merge.Reconcile(local, remote)
	if merged == local {
		merged = local.Clone()
	}
	cur := local.Meta()
	if remote.UpdatedAt > cur.UpdatedAt {
		cur.UpdatedAt = remote.UpdatedAt
	}
	merged.Stamp(s.engine.Clock().NextWriteMeta(cur))
	s.engine.AdoptExternal(merged, "reconcile")

	digest, err := state.Digest(merged)
	if err != nil {
		s.logger.Error("digest reconciled document", "error", err)
		return OutcomeReconciled
	}
	s.upload(ctx, merged, digest)
	return OutcomeReconciled
}

// Upload publishes the current local document. Failures degrade
// replication, never correctness: they are logged and swallowed, and the
// in-memory document stays authoritative.
func (s *Syncer) Upload(ctx context.Context) {
	local := s.engine.State()
	digest, err := state.Digest(local)
	if err != nil {
		s.logger.Error("digest local document", "error", err)
		return
	}
	s.upload(ctx, local, digest)
}

// Dirty reports whether the local document has edits the channel has not
// seen.
func (s *Syncer) Dirty() bool {
	digest, err := state.Digest(s.engine.State())
	if err != nil {
		return true
	}
	return !s.isSynced(digest)
}

func (s *Syncer) upload(ctx context.Context, st *state.State, digest string) {
	if err := s.channel.Publish(ctx, st); err != nil {
		s.logger.Warn("upload failed", "rev", st.Rev, "error", err)
		return
	}
	s.markSynced(digest)
}

func (s *Syncer) confirm(incoming, local *state.State) bool {
	if s.ConfirmReplace == nil {
		return false
	}
	return s.ConfirmReplace(incoming, local)
}

func (s *Syncer) markSynced(digest string) {
	s.mu.Lock()
	s.lastSynced = digest
	s.mu.Unlock()
}

func (s *Syncer) isSynced(digest string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return digest == s.lastSynced
}
