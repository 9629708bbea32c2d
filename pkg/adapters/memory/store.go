// Package memory is an in-memory remote note store.
// It backs tests and the development server, and scopes every note by the
// owner resolved from the caller's credential.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/quire/pkg/core"
)

// Errors returned by the store. The REST handler maps them to 404 and 401.
var (
	ErrNotFound     = core.ErrNotFound
	ErrUnauthorized = core.ErrUnauthenticated
)

// DefaultTitle is used when a note is created without a title.
const DefaultTitle = "Untitled"

type record struct {
	note core.Note
	seq  uint64
}

// Store implements core.Store in memory.
type Store struct {
	mu      sync.RWMutex
	notes   map[string]*record
	seq     uint64
	resolve func(credential string) (string, error)
	now     func() time.Time

	calls    map[core.Op]int
	failures map[core.Op][]error
}

// Option configures a Store.
type Option func(*Store)

// WithOwnerResolver maps a credential to an owner id. By default the
// credential itself is the owner.
func WithOwnerResolver(fn func(credential string) (string, error)) Option {
	return func(s *Store) {
		s.resolve = fn
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		notes: make(map[string]*record),
		resolve: func(credential string) (string, error) {
			return credential, nil
		},
		now:      time.Now,
		calls:    make(map[core.Op]int),
		failures: make(map[core.Op][]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNext makes the next call of op return err instead of running.
// Calls queue up: FailNext twice fails the next two calls.
func (s *Store) FailNext(op core.Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Calls returns how many times op was invoked, failed calls included.
func (s *Store) Calls(op core.Op) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Seed inserts a note as-is for owner, assigning an id when missing.
func (s *Store) Seed(owner string, n core.Note) core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	n.OwnerID = owner
	s.seq++
	s.notes[n.ID] = &record{note: n.Clone(), seq: s.seq}
	return n.Clone()
}

// enter counts the call, resolves the owner and pops an injected failure.
// Callers must hold s.mu.
func (s *Store) enter(op core.Op, credential string) (string, error) {
	s.calls[op]++
	if queued := s.failures[op]; len(queued) > 0 {
		s.failures[op] = queued[1:]
		return "", queued[0]
	}
	if credential == "" {
		return "", ErrUnauthorized
	}
	owner, err := s.resolve(credential)
	if err != nil {
		return "", errors.Join(ErrUnauthorized, err)
	}
	return owner, nil
}

func (s *Store) owned(owner, id string) (*record, error) {
	r, ok := s.notes[id]
	if !ok || r.note.OwnerID != owner {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns the owner's notes, newest-created first.
func (s *Store) List(ctx context.Context, credential string) ([]core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(core.OpList, credential)
	if err != nil {
		return nil, err
	}

	var records []*record
	for _, r := range s.notes {
		if r.note.OwnerID == owner {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].note.CreatedAt.Equal(records[j].note.CreatedAt) {
			return records[i].note.CreatedAt.After(records[j].note.CreatedAt)
		}
		return records[i].seq > records[j].seq
	})

	notes := make([]core.Note, 0, len(records))
	for _, r := range records {
		notes = append(notes, r.note.Clone())
	}
	return notes, nil
}

// Get retrieves a note by its ID.
func (s *Store) Get(ctx context.Context, credential, id string) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(core.OpGet, credential)
	if err != nil {
		return core.Note{}, err
	}
	r, err := s.owned(owner, id)
	if err != nil {
		return core.Note{}, err
	}
	return r.note.Clone(), nil
}

// Create inserts a note built from the patch.
func (s *Store) Create(ctx context.Context, credential string, p core.Patch) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(core.OpCreate, credential)
	if err != nil {
		return core.Note{}, err
	}

	now := s.now()
	n := p.Apply(core.Note{Title: DefaultTitle})
	n.ID = uuid.NewString()
	n.OwnerID = owner
	n.IsDeleted = false
	n.CreatedAt = now
	n.UpdatedAt = now

	s.seq++
	s.notes[n.ID] = &record{note: n, seq: s.seq}
	return n.Clone(), nil
}

// Update applies the patch to a note.
func (s *Store) Update(ctx context.Context, credential, id string, p core.Patch) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(core.OpUpdate, credential)
	if err != nil {
		return core.Note{}, err
	}
	r, err := s.owned(owner, id)
	if err != nil {
		return core.Note{}, err
	}
	r.note = p.Apply(r.note)
	r.note.UpdatedAt = s.now()
	return r.note.Clone(), nil
}

// Trash marks a note as deleted.
func (s *Store) Trash(ctx context.Context, credential, id string) error {
	return s.setDeleted(core.OpTrash, credential, id, true)
}

// Restore clears the deleted mark.
func (s *Store) Restore(ctx context.Context, credential, id string) error {
	return s.setDeleted(core.OpRestore, credential, id, false)
}

func (s *Store) setDeleted(op core.Op, credential, id string, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(op, credential)
	if err != nil {
		return err
	}
	r, err := s.owned(owner, id)
	if err != nil {
		return err
	}
	r.note.IsDeleted = deleted
	r.note.UpdatedAt = s.now()
	return nil
}

// Purge removes a note permanently.
func (s *Store) Purge(ctx context.Context, credential, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.enter(core.OpPurge, credential)
	if err != nil {
		return err
	}
	if _, err := s.owned(owner, id); err != nil {
		return err
	}
	delete(s.notes, id)
	return nil
}

// Len returns the number of notes across all owners.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}

var _ core.Store = (*Store)(nil)
