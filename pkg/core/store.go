package core

import "context"

// Store defines the contract of the remote note store.
// Every call is scoped by the bearer credential of the caller; the store
// owns ids and timestamps. Adhering to this interface keeps the engine
// independent of the transport (HTTP, in-memory, etc).
type Store interface {
	// List returns every note of the caller, active and trashed.
	List(ctx context.Context, credential string) ([]Note, error)

	// Get retrieves a note by its ID.
	Get(ctx context.Context, credential, id string) (Note, error)

	// Create persists a new note built from the patch and returns it.
	Create(ctx context.Context, credential string, p Patch) (Note, error)

	// Update applies a partial patch and returns the full note.
	Update(ctx context.Context, credential, id string, p Patch) (Note, error)

	// Trash marks a note as deleted.
	Trash(ctx context.Context, credential, id string) error

	// Restore clears the deleted mark.
	Restore(ctx context.Context, credential, id string) error

	// Purge removes a note permanently.
	Purge(ctx context.Context, credential, id string) error
}

// Session supplies the current bearer credential, or "" when logged out.
type Session interface {
	Credential() string
}

// WatchableSession is a Session that reports credential changes.
type WatchableSession interface {
	Session

	// Watch emits an event on every login and logout until ctx is done.
	Watch(ctx context.Context) (<-chan SessionEvent, error)
}

// StaticSession is a fixed credential. Useful for tests and one-shot tools.
type StaticSession string

// Credential implements Session.
func (s StaticSession) Credential() string { return string(s) }
