package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/replica"
	"github.com/roach88/focal/internal/state"
	"github.com/roach88/focal/internal/store"
)

// Session is one load-mutate-persist cycle against the local database. Every
// one-shot command opens one, applies its operation through Mutate, and
// commits: each effective mutation becomes one persisted undo level, the
// final document replaces the stored one, and the shared channel (when
// configured) gets the result.
type Session struct {
	opts   *RootOptions
	logger *slog.Logger

	store  *store.Store
	engine *engine.Engine
	clock  *clock.Clock

	prevs []*state.State // pre-image per effective mutation, oldest first
}

// OpenSession opens the database, loads the persisted document (or starts a
// fresh one), and builds the engine that will mutate it.
//
// The replica identity is the --client flag when given; otherwise the loaded
// document's last writer, so a single-machine database keeps one stable
// identity; otherwise a fresh UUID.
func OpenSession(ctx context.Context, opts *RootOptions, engineOpts ...engine.Option) (*Session, error) {
	if dir := filepath.Dir(opts.Database); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	doc, found, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load document", err)
	}

	clientID := opts.Client
	if clientID == "" && found {
		clientID = doc.ClientID
	}
	if clientID == "" {
		clientID = engine.UUIDv7Generator{}.NewID()
	}
	if !found {
		doc = state.New(clientID)
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	clk := clock.New(clientID)
	clk.ObserveRev(doc.Rev)
	opt := append([]engine.Option{engine.WithLogger(logger)}, engineOpts...)
	eng := engine.New(doc, clk, opt...)

	return &Session{
		opts:   opts,
		logger: logger,
		store:  st,
		engine: eng,
		clock:  clk,
	}, nil
}

// Close releases the database.
func (s *Session) Close() error {
	return s.store.Close()
}

// Engine exposes the session's engine for long-running surfaces.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Store exposes the underlying store for read-only commands.
func (s *Session) Store() *store.Store { return s.store }

// State returns the current document.
func (s *Session) State() *state.State { return s.engine.State() }

// Mutate applies one operation and records its pre-image if it changed
// anything. Commit later turns each recorded pre-image into one persisted
// undo level.
func (s *Session) Mutate(fn func(e *engine.Engine) *state.State) *state.State {
	prev := s.engine.State()
	next := fn(s.engine)
	if next != prev {
		s.prevs = append(s.prevs, prev)
	}
	return next
}

// Wake expires every due snooze before the command's own operation runs, the
// one-shot stand-in for watch mode's ticker. An effective wake is a mutation
// like any other and gets its own undo level.
func (s *Session) Wake() int {
	prev := s.engine.State()
	next, woken := s.engine.TickNow()
	if next != prev {
		s.prevs = append(s.prevs, prev)
	}
	return woken
}

// Changed reports whether the session holds uncommitted mutations.
func (s *Session) Changed() bool { return len(s.prevs) > 0 }

// Commit persists the session: one history level per recorded mutation, then
// the final document, then a best-effort publish to the shared channel.
// Nothing mutated, nothing written.
func (s *Session) Commit(ctx context.Context) error {
	if len(s.prevs) == 0 {
		return nil
	}
	for _, prev := range s.prevs {
		if err := s.store.PushHistory(ctx, prev); err != nil {
			return WrapExitError(ExitCommandError, "failed to record history", err)
		}
	}
	final := s.engine.State()
	if err := s.store.Save(ctx, final); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist document", err)
	}
	s.prevs = nil
	s.publish(ctx, final)
	return nil
}

// Undo restores the most recent persisted history level. The restored
// document keeps its lanes exactly but gets fresh write metadata: a replica
// that already adopted the undone document must see the restoration as newer,
// not dismiss it as stale.
func (s *Session) Undo(ctx context.Context) (*state.State, bool, error) {
	return s.stepHistory(ctx, s.store.UndoHistory)
}

// Redo steps forward over the most recently undone change.
func (s *Session) Redo(ctx context.Context) (*state.State, bool, error) {
	return s.stepHistory(ctx, s.store.RedoHistory)
}

func (s *Session) stepHistory(ctx context.Context, pop func(context.Context, *state.State) (*state.State, bool, error)) (*state.State, bool, error) {
	cur := s.engine.State()
	doc, found, err := pop(ctx, cur)
	if err != nil {
		return nil, false, WrapExitError(ExitCommandError, "failed to step history", err)
	}
	if !found {
		return cur, false, nil
	}
	doc.Stamp(s.clock.NextWriteMeta(cur.Meta()))
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, true, WrapExitError(ExitCommandError, "failed to persist document", err)
	}
	s.publish(ctx, doc)
	return doc, true, nil
}

// Adopt installs a document that came from outside this replica's edit flow
// (an import). Persisted history is reset across the boundary, the same rule
// the in-memory journal follows.
func (s *Session) Adopt(ctx context.Context, doc *state.State, origin string) (*state.State, error) {
	next := s.engine.AdoptExternal(doc, origin)
	if err := s.store.ResetHistory(ctx); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to reset history", err)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to persist document", err)
	}
	s.publish(ctx, next)
	return next, nil
}

// publish mirrors the committed document onto the shared snapshot file, when
// one is configured. Publish failures degrade replication, never the commit:
// they are logged and swallowed.
func (s *Session) publish(ctx context.Context, st *state.State) {
	if s.opts.Channel == "" {
		return
	}
	ch, err := replica.NewFileChannel(s.opts.Channel, s.logger)
	if err != nil {
		s.logger.Warn("open shared channel", "path", s.opts.Channel, "error", err)
		return
	}
	defer ch.Close()
	if err := ch.Publish(ctx, st); err != nil {
		s.logger.Warn("publish snapshot", "path", s.opts.Channel, "error", err)
	}
}

// resolveTaskID matches arg against the document's task ids, accepting any
// unambiguous prefix.
func resolveTaskID(st *state.State, arg string) (string, error) {
	if arg == "" {
		return "", NewExitError(ExitCommandError, "empty task id")
	}
	if _, ok := st.Tasks[arg]; ok {
		return arg, nil
	}
	var match string
	for id := range st.Tasks {
		if strings.HasPrefix(id, arg) {
			if match != "" {
				return "", NewExitError(ExitCommandError, fmt.Sprintf("task id %q is ambiguous", arg))
			}
			match = id
		}
	}
	if match == "" {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("no task matches %q", arg))
	}
	return match, nil
}
