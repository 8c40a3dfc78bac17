// Package clock allocates the write metadata that orders every mutation:
// a logical-millisecond timestamp and a revision counter, stamped with the
// owning replica's client id.
//
// The clock value is threaded explicitly through every mutation. Nothing in
// the mutation path reads package-level time; the time source is injected at
// construction, which is what makes replayed scenarios byte-identical.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/roach88/focal/internal/state"
)

// Clock hands out write metadata for one replica.
//
// Two guarantees, both load-bearing for reconciliation:
//
//   - UpdatedAt is strictly monotonic per document even when the wall clock
//     stalls or steps backward: next = now() if now() > current, else
//     current+1.
//   - Rev always outranks every revision this replica has ever observed,
//     local or remote: next = max(current, maxObserved) + 1. After adopting
//     a remote document, the very next local write wins the (updatedAt, rev)
//     comparison against it.
//
// Thread-safety: maxObserved is atomic so channel goroutines can call
// ObserveRev while the single writer allocates metadata.
type Clock struct {
	clientID    string
	now         func() int64
	maxObserved atomic.Int64
}

// New creates a clock for clientID reading the wall clock in epoch
// milliseconds.
func New(clientID string) *Clock {
	return NewAt(clientID, func() int64 { return time.Now().UnixMilli() })
}

// NewAt creates a clock with an injected time source. Tests and replays pass
// a scripted source; everything downstream behaves identically.
func NewAt(clientID string, now func() int64) *Clock {
	return &Clock{clientID: clientID, now: now}
}

// ClientID returns the replica id stamped onto allocated metadata.
func (c *Clock) ClientID() string {
	return c.clientID
}

// Now returns the current time in epoch milliseconds from the injected
// source. Snooze deadlines and tick due-checks read this, never time.Now.
func (c *Clock) Now() int64 {
	return c.now()
}

// NextWriteMeta allocates the metadata for the write that supersedes cur.
func (c *Clock) NextWriteMeta(cur state.WriteMeta) state.WriteMeta {
	updatedAt := c.now()
	if updatedAt <= cur.UpdatedAt {
		updatedAt = cur.UpdatedAt + 1
	}
	rev := cur.Rev
	if seen := c.maxObserved.Load(); seen > rev {
		rev = seen
	}
	return state.WriteMeta{
		Rev:       rev + 1,
		UpdatedAt: updatedAt,
		ClientID:  c.clientID,
	}
}

// ObserveRev records a revision seen on any channel (remote document,
// replica broadcast, import). Never decreases.
func (c *Clock) ObserveRev(rev int64) {
	for {
		cur := c.maxObserved.Load()
		if rev <= cur {
			return
		}
		if c.maxObserved.CompareAndSwap(cur, rev) {
			return
		}
	}
}

// MaxObservedRev returns the highest revision observed so far.
func (c *Clock) MaxObservedRev() int64 {
	return c.maxObserved.Load()
}
