// Package remote replicates the document through a central server.
//
// The server is deliberately dumb: it keeps exactly one document per
// account, replaces it wholesale on every accepted upload, and fans the
// full document out to every watcher of that account. It never merges
// and never schedules; every decision stays on the replicas. The only
// judgement the server exercises is refusing stale uploads, so a replica
// that raced and lost learns about the winning document instead of
// silently clobbering it.
package remote

import (
	"github.com/roach88/focal/internal/state"
)

// MessageType tags the frames exchanged on a watch socket.
type MessageType string

const (
	// MessageTypePut carries a replica's upload.
	MessageTypePut MessageType = "put"

	// MessageTypeDocument carries the server's current document, sent on
	// subscribe and on every accepted replacement.
	MessageTypeDocument MessageType = "document"

	// MessageTypeConflict rejects a stale upload. Document holds the
	// server's copy so the loser can reconcile instead of retrying blind.
	MessageTypeConflict MessageType = "conflict"
)

// Message is one frame on a watch socket.
type Message struct {
	Type     MessageType `json:"type"`
	Document *Document   `json:"document,omitempty"`
}

// Document is the unit the server stores and replicates: the full
// application state wrapped with the server's own provenance. It is
// never partially patched.
type Document struct {
	SchemaVersion        int          `json:"schemaVersion"`
	ServerWriteTimestamp int64        `json:"serverWriteTimestamp"`
	State                *state.State `json:"state"`
}
