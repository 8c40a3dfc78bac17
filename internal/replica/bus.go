package replica

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/focal/internal/state"
)

// Bus fans snapshots out between endpoints in the same process. Each
// endpoint is one replica; a publish reaches every endpoint except the
// publisher. Backs tests and same-process tabs.
type Bus struct {
	mu  sync.RWMutex
	eps map[*BusEndpoint]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{eps: make(map[*BusEndpoint]struct{})}
}

// Join attaches a new replica endpoint to the bus.
func (b *Bus) Join() *BusEndpoint {
	e := &BusEndpoint{bus: b, ch: make(chan Snapshot, 64)}
	b.mu.Lock()
	b.eps[e] = struct{}{}
	b.mu.Unlock()
	return e
}

// BusEndpoint is one replica's handle on a Bus. Implements Channel.
type BusEndpoint struct {
	bus *Bus

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// Publish hands the document to every other endpoint. Each receiver gets
// its own deep copy; replicas exchange snapshots, never memory.
func (e *BusEndpoint) Publish(ctx context.Context, st *state.State) error {
	digest, err := state.Digest(st)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	e.bus.mu.RLock()
	defer e.bus.mu.RUnlock()
	for other := range e.bus.eps {
		if other == e {
			continue
		}
		select {
		case other.ch <- Snapshot{Digest: digest, State: st.Clone()}:
		default:
			// subscriber is behind; drop rather than block the publisher,
			// a later publish carries the fresher document anyway
		}
	}
	return nil
}

// Snapshots returns the endpoint's receive channel.
func (e *BusEndpoint) Snapshots() <-chan Snapshot {
	return e.ch
}

// Close detaches the endpoint and closes its channel. Idempotent.
func (e *BusEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.bus.mu.Lock()
	delete(e.bus.eps, e)
	e.bus.mu.Unlock()

	close(e.ch)
	return nil
}
