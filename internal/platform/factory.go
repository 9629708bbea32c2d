package platform

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/quire/pkg/adapters/rest"
	"github.com/aretw0/quire/pkg/adapters/session"
	"github.com/aretw0/quire/pkg/autosave"
	"github.com/aretw0/quire/pkg/core"
)

// ErrNoEndpoint is returned by New when neither a store nor an endpoint is
// configured.
var ErrNoEndpoint = errors.New("no endpoint configured (set endpoint in config or QUIRE_ENDPOINT)")

// Components is the wired object graph of a Quire application.
type Components struct {
	Store     core.Store
	Session   core.Session
	Engine    *core.Engine
	Scheduler *autosave.Scheduler
	Logger    *slog.Logger

	// Credentials is the file-backed session, nil when a session was injected.
	Credentials *session.FileStore
}

// New wires the store, the session, the engine and the scheduler.
//
//	c, err := platform.New(platform.WithEndpoint("https://notes.example.com/api"))
func New(opts ...Option) (*Components, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := newStore(o, logger)
	if err != nil {
		return nil, err
	}

	c := &Components{Store: store, Logger: logger}

	if o.session != nil {
		c.Session = o.session
	} else {
		fs, err := newCredentials(o, logger)
		if err != nil {
			return nil, err
		}
		c.Session = fs
		c.Credentials = fs
	}

	c.Engine = core.NewEngine(store, c.Session,
		core.WithLogger(logger.With("component", "engine")),
		core.WithEventBuffer(o.eventBuffer),
	)

	schedOpts := []autosave.Option{
		autosave.WithQuietPeriod(o.quietPeriod),
		autosave.WithDiscardOnSwitch(o.discardOnSwitch),
		autosave.WithLogger(logger.With("component", "autosave")),
	}
	if o.clock != nil {
		schedOpts = append(schedOpts, autosave.WithClock(o.clock))
	}
	c.Scheduler = autosave.New(c.Engine, schedOpts...)

	return c, nil
}

// NewCredentials opens only the file-backed session, for commands that
// never reach the remote store.
func NewCredentials(opts ...Option) (*session.FileStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return newCredentials(o, logger)
}

func newStore(o *options, logger *slog.Logger) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	if o.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	restOpts := []rest.Option{rest.WithLogger(logger.With("component", "rest"))}
	if o.httpClient != nil {
		restOpts = append(restOpts, rest.WithHTTPClient(o.httpClient))
	}
	if o.timeout > 0 {
		restOpts = append(restOpts, rest.WithTimeout(o.timeout))
	}
	return rest.New(o.endpoint, restOpts...)
}

func newCredentials(o *options, logger *slog.Logger) (*session.FileStore, error) {
	path := o.credentialFile
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}

	sandbox := o.devSafety && IsDevRun()
	resolved := ResolveCredentialPath(path, sandbox)
	if sandbox && resolved != path {
		logger.Debug("running in SAFE mode (dev sandbox enabled)", "credential_file", resolved)
	}

	fs := session.NewFileStore(resolved, session.WithLogger(logger.With("component", "session")))
	// An invalid credential has already been removed; start signed out.
	if err := fs.Load(); err != nil && !errors.Is(err, core.ErrCredentialInvalid) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return fs, nil
}
