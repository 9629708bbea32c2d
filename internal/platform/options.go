package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/quire/pkg/autosave"
	"github.com/aretw0/quire/pkg/core"
)

// options holds the internal configuration of a Quire application.
type options struct {
	store           core.Store
	session         core.Session
	endpoint        string
	credentialFile  string
	timeout         time.Duration
	httpClient      *http.Client
	quietPeriod     time.Duration
	discardOnSwitch bool
	clock           autosave.Clock
	eventBuffer     int
	logger          *slog.Logger
	devSafety       bool
}

// Option defines a functional option for configuring Quire.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		quietPeriod: autosave.DefaultQuietPeriod,
		devSafety:   true,
	}
}

// WithStore injects the remote note store (e.g. memory.Store in tests).
// If provided, the endpoint is ignored.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithSession injects the session provider. If provided, the credential
// file is not used.
func WithSession(s core.Session) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithEndpoint sets the base URL of the notes REST API.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithCredentialFile sets where the credential is persisted.
// Defaults to $XDG_CONFIG_HOME/quire/credential.
func WithCredentialFile(path string) Option {
	return func(o *options) {
		o.credentialFile = path
	}
}

// WithTimeout bounds every request to the remote store.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client of the REST store.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithQuietPeriod sets the autosave debounce interval. Defaults to 1s.
func WithQuietPeriod(d time.Duration) Option {
	return func(o *options) {
		o.quietPeriod = d
	}
}

// WithDiscardOnSwitch abandons pending autosaves when the editor leaves a
// note instead of flushing them.
func WithDiscardOnSwitch(discard bool) Option {
	return func(o *options) {
		o.discardOnSwitch = discard
	}
}

// WithClock sets the time source of the autosave scheduler.
func WithClock(c autosave.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithEventBuffer sets the per-watcher buffer of engine events.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// By default (true) the credential file is moved into a temporary
// directory there, so development runs never touch the real login.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}
