// Package session keeps the bearer credential of the signed-in user.
//
// The credential lives in a single file so that sessions survive restarts
// and every quire process on the machine shares one login. Changes made by
// other processes are picked up through a filesystem watch.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/pkg/core"
)

// FilePerm is the permission of the credential file.
const FilePerm os.FileMode = 0o600

// DefaultPath returns $XDG_CONFIG_HOME/quire/credential (or the platform
// equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "quire", "credential"), nil
}

// FileStore is a core.WatchableSession persisted in a file.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu         sync.RWMutex
	credential string
	user       User

	subMu   sync.Mutex
	subs    map[int]chan core.SessionEvent
	nextSub int
	workers int
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore creates a FileStore for path. Call Load to resume a session.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.New(slog.DiscardHandler),
		subs:   make(map[int]chan core.SessionEvent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load resumes the stored session. A missing file means logged out. A
// credential that fails to decode is removed and ErrCredentialInvalid is
// returned.
func (s *FileStore) Load() error {
	_, err := s.reload()
	return err
}

// reload syncs memory with the file and reports whether the credential
// changed.
func (s *FileStore) reload() (bool, error) {
	token, err := s.read()
	if err != nil {
		return false, err
	}

	var user User
	var invalid error
	if token != "" {
		if user, invalid = DecodeClaims(token); invalid != nil {
			s.logger.Warn("stored credential is invalid, logging out", "path", s.path, "error", invalid)
			if rmErr := s.remove(); rmErr != nil {
				invalid = errors.Join(invalid, rmErr)
			}
			token, user = "", User{}
		}
	}

	changed := s.set(token, user)
	if changed {
		s.notify(token)
	}
	return changed, invalid
}

func (s *FileStore) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

func (s *FileStore) set(token string, user User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == token {
		return false
	}
	s.credential = token
	s.user = user
	return true
}

// Login stores token after checking that its claims decode.
func (s *FileStore) Login(token string) (User, error) {
	token = strings.TrimSpace(token)
	user, err := DecodeClaims(token)
	if err != nil {
		return User{}, err
	}
	if err := writeFileAtomic(s.path, []byte(token+"\n"), FilePerm); err != nil {
		return User{}, fmt.Errorf("store credential: %w", err)
	}
	if s.set(token, user) {
		s.notify(token)
	}
	s.logger.Info("logged in", "user", user.ID)
	return user, nil
}

// Logout forgets the credential.
func (s *FileStore) Logout() error {
	if err := s.remove(); err != nil {
		return err
	}
	if s.set("", User{}) {
		s.notify("")
	}
	s.logger.Info("logged out")
	return nil
}

// Credential implements core.Session.
func (s *FileStore) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// User returns the signed-in user.
func (s *FileStore) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.credential != ""
}

// Watch implements core.WatchableSession. Events come from Login and Logout
// in this process and from changes to the file made by others.
func (s *FileStore) Watch(ctx context.Context) (<-chan core.SessionEvent, error) {
	w := newCredentialWatcher(s)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	ch := make(chan core.SessionEvent, 8)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subMu.Unlock()
		return nil
	})
	return ch, nil
}

func (s *FileStore) notify(token string) {
	ev := core.SessionEvent{Credential: token}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("session event dropped")
		}
	}
}

func (s *FileStore) setWorkers(delta int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.workers += delta
}

var _ core.WatchableSession = (*FileStore)(nil)
