package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/roach88/focal/internal/replica"
	"github.com/roach88/focal/internal/snapshot"
	"github.com/roach88/focal/internal/state"
)

// Client mirrors one account's document over a watch socket. Publish
// uploads the local document wholesale; Snapshots carries every document
// the server fans out, already normalized. Echoes of the client's own
// uploads are dropped by digest, so a replica never re-observes what it
// just said.
//
// The client is a single session: when the socket dies the error surfaces
// on Errors and Snapshots is closed. Reconnecting is the caller's call.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	snaps chan replica.Snapshot
	errs  chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastSeen string
	closed   bool
}

var _ replica.Channel = (*Client)(nil)

// Dial connects to a document server and begins watching account.
// serverURL is the base, e.g. "ws://127.0.0.1:7341".
func Dial(ctx context.Context, serverURL, account string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watchURL := strings.TrimRight(serverURL, "/") + "/v1/doc/" + url.PathEscape(account) + "/watch"
	conn, _, err := websocket.Dial(ctx, watchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", watchURL, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		logger: logger,
		snaps:  make(chan replica.Snapshot, 16),
		errs:   make(chan error, 1),
		ctx:    readCtx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

// Publish uploads the document. The server answers a stale upload with
// its own document, which arrives on Snapshots like any other change.
func (c *Client) Publish(ctx context.Context, st *state.State) error {
	digest, err := state.Digest(st)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	raw, err := json.Marshal(Message{
		Type:     MessageTypePut,
		Document: &Document{SchemaVersion: state.SchemaVersion, State: st},
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	// Mark before writing so the fan-out echo is already stale on arrival.
	c.mu.Lock()
	c.lastSeen = digest
	c.mu.Unlock()

	if err := c.conn.Write(ctx, websocket.MessageText, raw); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Snapshots delivers documents observed on the socket. The channel is
// closed when the session ends.
func (c *Client) Snapshots() <-chan replica.Snapshot {
	return c.snaps
}

// Errors surfaces the session-ending read failure, if any.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Close ends the session. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	c.wg.Wait()
	close(c.errs)
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.snaps)

	for {
		_, raw, err := c.conn.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				select {
				case c.errs <- fmt.Errorf("watch: %w", err):
				default:
				}
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("dropping unparseable frame", "error", err)
			continue
		}
		if msg.Document == nil || msg.Document.State == nil {
			continue
		}
		switch msg.Type {
		case MessageTypeDocument, MessageTypeConflict:
		default:
			continue
		}

		st := snapshot.Normalize(msg.Document.State)
		digest, err := state.Digest(st)
		if err != nil {
			c.logger.Warn("dropping undigestable document", "error", err)
			continue
		}

		c.mu.Lock()
		echo := digest == c.lastSeen
		if !echo {
			c.lastSeen = digest
		}
		c.mu.Unlock()
		if echo {
			continue
		}

		if msg.Type == MessageTypeConflict {
			c.logger.Warn("upload rejected as stale; server document follows",
				"server_rev", st.Rev)
		}

		select {
		case c.snaps <- replica.Snapshot{Digest: digest, State: st}:
		default:
			// Subscriber is behind; drop rather than block the socket.
			// The document is whole, a later frame carries everything.
			c.logger.Warn("dropping snapshot, consumer is behind")
		}
	}
}
