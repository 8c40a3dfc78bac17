package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/roach88/focal/internal/state"
)

// writeTimeout bounds every frame written to a subscriber. A watcher
// that cannot drain within it is dropped; it can reconnect and resume
// from the current document.
const writeTimeout = 5 * time.Second

// Config holds document server configuration.
type Config struct {
	// Addr to listen on (default 127.0.0.1:7341).
	Addr string

	// Logger for server activity (default slog.Default()).
	Logger *slog.Logger

	// Now supplies ServerWriteTimestamp stamps in ms (default wall clock).
	Now func() int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:7341",
		Logger: slog.Default(),
		Now:    func() int64 { return time.Now().UnixMilli() },
	}
}

type storedDoc struct {
	doc    *Document
	digest string
}

// Server holds one document per account and mirrors it to every watcher
// of that account over WebSocket.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	mu   sync.RWMutex
	docs map[string]*storedDoc
	subs map[string]map[*websocket.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
	now    func() int64
}

// NewServer creates a document server. Call Start to begin serving.
func NewServer(config *Config) *Server {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.Addr == "" {
		config.Addr = def.Addr
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	if config.Now == nil {
		config.Now = def.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:   config.Addr,
		docs:   make(map[string]*storedDoc),
		subs:   make(map[string]map[*websocket.Conn]struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: config.Logger,
		now:    config.Now,
	}
}

// Start begins listening and serving watch sockets.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/doc/{account}/watch", s.handleWatch)
	mux.HandleFunc("/health", s.handleHealth)

	// No WriteTimeout: watch sockets are long-lived. Frame writes carry
	// their own deadline.
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("document server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("document server failed", "error", err)
		}
	}()

	return nil
}

// Stop disconnects every watcher and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for account, conns := range s.subs {
		for conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(s.subs, account)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.wg.Wait()
	s.logger.Info("document server stopped")
	return nil
}

// Addr returns the listening address, useful when Addr was ":0".
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Document returns a copy of the account's current document, or nil if
// nothing has been uploaded yet.
func (s *Server) Document(account string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.docs[account]
	if !ok {
		return nil
	}
	return &Document{
		SchemaVersion:        stored.doc.SchemaVersion,
		ServerWriteTimestamp: stored.doc.ServerWriteTimestamp,
		State:                stored.doc.State.Clone(),
	}
}

// SubscriberCount returns the number of watchers on an account.
func (s *Server) SubscriberCount(account string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[account])
}

// handleWatch upgrades the connection and streams the account's document.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if account == "" {
		http.Error(w, "missing account", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "account", account, "error", err)
		return
	}

	s.mu.Lock()
	if s.subs[account] == nil {
		s.subs[account] = make(map[*websocket.Conn]struct{})
	}
	s.subs[account][conn] = struct{}{}
	count := len(s.subs[account])
	s.mu.Unlock()

	s.logger.Info("watcher connected", "account", account, "watchers", count)

	// A late joiner starts from the current document.
	if doc := s.Document(account); doc != nil {
		s.send(conn, Message{Type: MessageTypeDocument, Document: doc})
	}

	s.wg.Add(1)
	go s.readLoop(account, conn)
}

// readLoop consumes a watcher's uploads until the connection dies.
func (s *Server) readLoop(account string, conn *websocket.Conn) {
	defer s.wg.Done()
	defer s.removeSubscriber(account, conn)

	for {
		_, raw, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("dropping unparseable frame", "account", account, "error", err)
			continue
		}
		if msg.Type != MessageTypePut || msg.Document == nil || msg.Document.State == nil {
			continue
		}
		s.put(account, conn, msg.Document)
	}
}

// put replaces the account's document wholesale, or answers the uploader
// with a conflict when the upload is stale.
func (s *Server) put(account string, from *websocket.Conn, doc *Document) {
	digest, err := state.Digest(doc.State)
	if err != nil {
		s.logger.Warn("dropping undigestable upload", "account", account, "error", err)
		return
	}

	s.mu.Lock()
	stored := s.docs[account]
	if stored != nil && digest == stored.digest {
		// Idempotent re-upload of the document we already hold.
		s.mu.Unlock()
		return
	}
	if stored != nil && doc.State.Rev <= stored.doc.State.Rev {
		reply := stored.doc
		s.mu.Unlock()
		s.logger.Info("rejecting stale upload",
			"account", account, "rev", doc.State.Rev, "stored_rev", reply.State.Rev)
		s.send(from, Message{Type: MessageTypeConflict, Document: reply})
		return
	}
	accepted := &Document{
		SchemaVersion:        state.SchemaVersion,
		ServerWriteTimestamp: s.now(),
		State:                doc.State,
	}
	s.docs[account] = &storedDoc{doc: accepted, digest: digest}
	s.mu.Unlock()

	s.logger.Info("document replaced",
		"account", account, "rev", accepted.State.Rev, "digest", digest[:8])
	s.fanOut(account, accepted)
}

// fanOut sends the document to every watcher of the account, including
// the uploader; clients drop the echo by digest.
func (s *Server) fanOut(account string, doc *Document) {
	raw, err := json.Marshal(Message{Type: MessageTypeDocument, Document: doc})
	if err != nil {
		s.logger.Error("marshal document", "account", account, "error", err)
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.subs[account]))
	for conn := range s.subs[account] {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	// Write outside the lock so a slow watcher cannot stall uploads.
	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, raw)
		cancel()
		if err != nil {
			s.removeSubscriber(account, conn)
		}
	}
}

// send writes a single frame with a bounded deadline.
func (s *Server) send(conn *websocket.Conn, msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal frame", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		s.logger.Warn("frame write failed", "error", err)
	}
}

func (s *Server) removeSubscriber(account string, conn *websocket.Conn) {
	s.mu.Lock()
	conns, ok := s.subs[account]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, exists := conns[conn]; !exists {
		s.mu.Unlock()
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(s.subs, account)
	}
	s.mu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("watcher disconnected", "account", account)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	accounts := len(s.docs)
	watchers := 0
	for _, conns := range s.subs {
		watchers += len(conns)
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"accounts": accounts,
		"watchers": watchers,
	})
}
