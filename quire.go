package quire

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/internal/platform"
	"github.com/aretw0/quire/pkg/adapters/session"
	"github.com/aretw0/quire/pkg/autosave"
	"github.com/aretw0/quire/pkg/core"
)

// --- Types ---

// Note is a public alias for the domain note.
type Note = core.Note

// Patch is a public alias for a partial note.
type Patch = core.Patch

// Filter is a public alias for the note view filter.
type Filter = core.Filter

// Draft is a public alias for the editor values of the open note.
type Draft = autosave.Draft

// User is a public alias for the signed-in identity.
type User = session.User

// ErrNoCredentialStore is returned by Login and Logout when the application
// was built with an injected session.
var ErrNoCredentialStore = errors.New("session is not file backed")

// --- Configuration ---

// Option defines a functional option for configuring Quire.
type Option = platform.Option

// WithStore injects the remote note store.
func WithStore(store core.Store) Option { return platform.WithStore(store) }

// WithSession injects the session provider.
func WithSession(s core.Session) Option { return platform.WithSession(s) }

// WithEndpoint sets the base URL of the notes REST API.
func WithEndpoint(url string) Option { return platform.WithEndpoint(url) }

// WithCredentialFile sets where the credential is persisted.
func WithCredentialFile(path string) Option { return platform.WithCredentialFile(path) }

// WithTimeout bounds every request to the remote store.
func WithTimeout(d time.Duration) Option { return platform.WithTimeout(d) }

// WithHTTPClient replaces the HTTP client of the REST store.
func WithHTTPClient(hc *http.Client) Option { return platform.WithHTTPClient(hc) }

// WithQuietPeriod sets the autosave debounce interval.
func WithQuietPeriod(d time.Duration) Option { return platform.WithQuietPeriod(d) }

// WithDiscardOnSwitch abandons pending autosaves when leaving a note.
func WithDiscardOnSwitch(discard bool) Option { return platform.WithDiscardOnSwitch(discard) }

// WithClock sets the time source of the autosave scheduler.
func WithClock(c autosave.Clock) Option { return platform.WithClock(c) }

// WithEventBuffer sets the per-watcher buffer of engine events.
func WithEventBuffer(size int) Option { return platform.WithEventBuffer(size) }

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option { return platform.WithLogger(logger) }

// WithDevSafety controls the credential sandbox used under `go run`.
func WithDevSafety(enabled bool) Option { return platform.WithDevSafety(enabled) }

// --- Application ---

// App holds the state of one client session: the synchronization engine,
// the autosave scheduler and the session provider.
type App struct {
	engine      *core.Engine
	scheduler   *autosave.Scheduler
	session     core.Session
	credentials *session.FileStore
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates an App.
func New(opts ...Option) (*App, error) {
	c, err := platform.New(opts...)
	if err != nil {
		return nil, err
	}
	return &App{
		engine:      c.Engine,
		scheduler:   c.Scheduler,
		session:     c.Session,
		credentials: c.Credentials,
		logger:      c.Logger,
	}, nil
}

// OpenCredentials opens the credential file configured by opts without
// building a store, so it works without an endpoint.
func OpenCredentials(opts ...Option) (*session.FileStore, error) {
	return platform.NewCredentials(opts...)
}

// Engine returns the note synchronization engine.
func (a *App) Engine() *core.Engine { return a.engine }

// Scheduler returns the autosave scheduler.
func (a *App) Scheduler() *autosave.Scheduler { return a.scheduler }

// Session returns the session provider.
func (a *App) Session() core.Session { return a.session }

// Credentials returns the file-backed session, or nil when one was injected.
func (a *App) Credentials() *session.FileStore { return a.credentials }

// Start loads the notes and keeps the engine and the editor in sync with
// the session and with server responses until Stop.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		cancel()
		return errors.New("app already started")
	}
	a.cancel = cancel
	a.mu.Unlock()

	events := a.engine.Watch(ctx)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		a.refreshDrafts(ctx, events)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		a.logger.Error("draft bridge failed", "error", err)
	}))

	return a.engine.Open(ctx)
}

// refreshDrafts merges server copies into the open draft.
func (a *App) refreshDrafts(ctx context.Context, events <-chan core.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case core.EventUpdated, core.EventFocused, core.EventCreated:
				// The focused copy is the latest server response for its id;
				// the collection entry may predate it.
				if n, ok := a.engine.Focused(); ok && n.ID == ev.ID {
					a.scheduler.Refresh(n)
				} else if ev.Type != core.EventFocused {
					if n, ok := a.engine.Note(ev.ID); ok {
						a.scheduler.Refresh(n)
					}
				}
			}
		}
	}
}

// Stop flushes the editor and stops following the session.
func (a *App) Stop(ctx context.Context) error {
	err := a.scheduler.Close(ctx)
	a.engine.Close()

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
	return err
}

// OpenNote fetches a note, focuses it and puts it in the editor.
func (a *App) OpenNote(ctx context.Context, id string) (Draft, error) {
	if a.session.Credential() == "" {
		return Draft{}, core.ErrUnauthenticated
	}
	if err := a.engine.FetchOne(ctx, id); err != nil {
		return Draft{}, err
	}
	n, ok := a.engine.Focused()
	if !ok || n.ID != id {
		return Draft{}, core.ErrNotFound
	}
	a.scheduler.Open(n)
	d, _ := a.scheduler.Draft()
	return d, nil
}

// CloseNote leaves the editor: the pending autosave is flushed (or
// discarded, see WithDiscardOnSwitch) and the focus cleared.
func (a *App) CloseNote(ctx context.Context) error {
	err := a.scheduler.Close(ctx)
	a.engine.ClearFocus()
	return err
}

// Login stores a credential. The engine refetches through the session
// watch once started.
func (a *App) Login(token string) (User, error) {
	if a.credentials == nil {
		return User{}, ErrNoCredentialStore
	}
	return a.credentials.Login(token)
}

// Logout forgets the credential and discards the local notes.
func (a *App) Logout(ctx context.Context) error {
	if a.credentials == nil {
		return ErrNoCredentialStore
	}
	if err := a.scheduler.Close(ctx); err != nil {
		a.logger.Warn("unsaved changes lost on logout", "error", err)
	}
	if err := a.credentials.Logout(); err != nil {
		return err
	}
	a.engine.Reset()
	return nil
}

// AppState aggregates the state of every component.
type AppState struct {
	Engine   any `json:"engine"`
	Autosave any `json:"autosave"`
	Session  any `json:"session,omitempty"`
}

// State implements introspection.Introspectable.
func (a *App) State() any {
	st := AppState{
		Engine:   a.engine.State(),
		Autosave: a.scheduler.State(),
	}
	if in, ok := a.session.(introspection.Introspectable); ok {
		st.Session = in.State()
	}
	return st
}

// ComponentType implements introspection.Component.
func (a *App) ComponentType() string {
	return "app"
}

var _ introspection.Introspectable = (*App)(nil)
var _ introspection.Component = (*App)(nil)
