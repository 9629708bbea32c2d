package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"
)

const defaultEventBuffer = 100

// Engine is the single source of truth for a user's notes during a session.
// It translates intents into remote store calls and reconciles the results;
// it is the only writer of its state. Responses that arrive after the
// session changed are discarded.
type Engine struct {
	store   Store
	session Session
	logger  *slog.Logger

	eventBufferSize int

	mu         sync.RWMutex
	st         *state
	generation uint64
	cancel     context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for background failures.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventBuffer sets the per-watcher event buffer. Zero means default (100).
func WithEventBuffer(size int) EngineOption {
	return func(e *Engine) {
		if size > 0 {
			e.eventBufferSize = size
		}
	}
}

// NewEngine creates an Engine bound to a remote store and a session.
func NewEngine(store Store, session Session, opts ...EngineOption) *Engine {
	e := &Engine{
		store:           store,
		session:         session,
		logger:          slog.New(slog.DiscardHandler),
		eventBufferSize: defaultEventBuffer,
		st:              newState(),
		subs:            make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open makes the engine follow its session: the collection is fetched now
// if a credential is present, then reset and fetched again on every login,
// and reset on logout. A failed initial fetch is returned but the engine
// stays open.
func (e *Engine) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		cancel()
		return errors.New("engine already open")
	}
	e.cancel = cancel
	e.mu.Unlock()

	if ws, ok := e.session.(WatchableSession); ok {
		events, err := ws.Watch(ctx)
		if err != nil {
			e.Close()
			return fmt.Errorf("watch session: %w", err)
		}
		lifecycle.Go(ctx, func(ctx context.Context) error {
			e.follow(ctx, events)
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			e.logger.Error("session bridge failed", "error", err)
		}))
	}

	return e.FetchAll(ctx)
}

// Close stops following the session. State is kept.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) follow(ctx context.Context, events <-chan SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.Reset()
			if !ev.LoggedIn() {
				e.logger.Info("session ended, notes discarded")
				continue
			}
			e.logger.Debug("session changed, refetching notes")
			_ = e.FetchAll(ctx)
		}
	}
}

// FetchAll replaces the collection with the store's. Without a credential
// it returns immediately. Failures are recorded in LastError.
func (e *Engine) FetchAll(ctx context.Context) error {
	cred, gen := e.begin()
	if cred == "" {
		return nil
	}

	e.dispatch(gen, fetchStarted{})
	notes, err := e.store.List(ctx, cred)
	if err != nil {
		e.logger.Warn("fetch notes failed", "error", err)
		e.dispatch(gen, fetchFailed{message: MessageOf(err)})
		return wrapOp(OpList, "", err)
	}
	e.dispatch(gen, notesLoaded{notes: notes})
	return nil
}

// FetchOne loads a note into focus. On failure the previous focus is kept,
// so a transient error does not blank an open editor.
func (e *Engine) FetchOne(ctx context.Context, id string) error {
	cred, gen := e.begin()
	if cred == "" {
		return nil
	}

	e.dispatch(gen, fetchStarted{})
	note, err := e.store.Get(ctx, cred, id)
	if err != nil {
		e.logger.Warn("fetch note failed", "id", id, "error", err)
		e.dispatch(gen, fetchFailed{message: MessageOf(err)})
		return wrapOp(OpGet, id, err)
	}
	e.dispatch(gen, noteLoaded{note: note})
	return nil
}

// Create stores a new note, prepends it to the collection and focuses it.
// Unlike the other intents it fails with ErrUnauthenticated when logged out.
func (e *Engine) Create(ctx context.Context, p Patch) (Note, error) {
	cred, gen := e.begin()
	if cred == "" {
		return Note{}, ErrUnauthenticated
	}

	note, err := e.store.Create(ctx, cred, p)
	if err != nil {
		return Note{}, wrapOp(OpCreate, "", err)
	}
	e.dispatch(gen, noteCreated{note: note})
	return note.Clone(), nil
}

// Update sends a partial patch and reconciles the full note returned by the
// store. Failures leave the state untouched; they are logged and reported
// through SaveStatus, never through LastError.
func (e *Engine) Update(ctx context.Context, id string, p Patch) error {
	cred, gen := e.begin()
	if cred == "" || p.IsEmpty() {
		return nil
	}

	e.dispatch(gen, saveStatusSet{id: id, status: StatusSaving})
	note, err := e.store.Update(ctx, cred, id, p)
	if err != nil {
		e.logger.Error("update note failed", "id", id, "fields", p.Fields(), "error", err)
		e.dispatch(gen, saveStatusSet{id: id, status: StatusFailed(MessageOf(err))})
		return wrapOp(OpUpdate, id, err)
	}
	e.dispatch(gen, noteUpdated{note: note})
	e.dispatch(gen, saveStatusSet{id: id, status: StatusSaved})
	return nil
}

// Trash soft-deletes a note. The flag flips only after the store confirms.
func (e *Engine) Trash(ctx context.Context, id string) error {
	return e.flag(ctx, OpTrash, id, true)
}

// Restore takes a note out of the trash after the store confirms.
func (e *Engine) Restore(ctx context.Context, id string) error {
	return e.flag(ctx, OpRestore, id, false)
}

func (e *Engine) flag(ctx context.Context, op Op, id string, deleted bool) error {
	cred, gen := e.begin()
	if cred == "" {
		return nil
	}

	var err error
	if deleted {
		err = e.store.Trash(ctx, cred, id)
	} else {
		err = e.store.Restore(ctx, cred, id)
	}
	if err != nil {
		e.logger.Error(string(op)+" note failed", "id", id, "error", err)
		return wrapOp(op, id, err)
	}
	e.dispatch(gen, noteFlagged{id: id, deleted: deleted})
	return nil
}

// Purge permanently deletes a note, trashed or not. No tombstone is kept.
func (e *Engine) Purge(ctx context.Context, id string) error {
	cred, gen := e.begin()
	if cred == "" {
		return nil
	}

	if err := e.store.Purge(ctx, cred, id); err != nil {
		e.logger.Error("purge note failed", "id", id, "error", err)
		return wrapOp(OpPurge, id, err)
	}
	e.dispatch(gen, notePurged{id: id})
	return nil
}

// ClearFocus drops the focused note. No network call is made.
func (e *Engine) ClearFocus() {
	e.mu.RLock()
	gen := e.generation
	e.mu.RUnlock()
	e.dispatch(gen, focusCleared{})
}

// Reset discards all state, as on logout. In-flight responses of the
// previous session are ignored when they arrive.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.generation++
	ev, _ := reduce(e.st, sessionReset{})
	e.mu.Unlock()
	e.publish(ev)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.snapshot()
}

// Notes returns the notes matching f, in collection order.
func (e *Engine) Notes(f Filter) []Note {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Select(e.st.notes, f)
}

// Note returns the collection entry for id.
func (e *Engine) Note(id string) (Note, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.st.index(id); i >= 0 {
		return e.st.notes[i].Clone(), true
	}
	return Note{}, false
}

// Focused returns the focused note.
func (e *Engine) Focused() (Note, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.st.focused == nil {
		return Note{}, false
	}
	return e.st.focused.Clone(), true
}

// SaveStatus reports the outcome of the last write of a note.
func (e *Engine) SaveStatus(id string) SaveStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if s, ok := e.st.statuses[id]; ok {
		return s
	}
	return StatusIdle
}

// Watch streams reconciled changes until ctx is done. Delivery is
// best-effort: a watcher that falls more than the buffer behind loses events.
func (e *Engine) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, e.eventBufferSize)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		e.subMu.Lock()
		delete(e.subs, id)
		close(ch)
		e.subMu.Unlock()
		return nil
	})
	return ch
}

func (e *Engine) begin() (string, uint64) {
	e.mu.RLock()
	gen := e.generation
	e.mu.RUnlock()
	if e.session == nil {
		return "", gen
	}
	return e.session.Credential(), gen
}

// dispatch reduces a into the state unless the session changed since gen.
func (e *Engine) dispatch(gen uint64, a action) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("stale response discarded", "action", fmt.Sprintf("%T", a))
		return
	}
	ev, ok := reduce(e.st, a)
	e.mu.Unlock()
	if ok {
		e.publish(ev)
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.Debug("event dropped", "event", ev.String())
		}
	}
}
