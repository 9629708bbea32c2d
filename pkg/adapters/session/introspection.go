package session

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes the session for observability. The credential itself
// is never included.
type StoreState struct {
	Path          string `json:"path"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Watchers      int    `json:"watchers"`
	FileWatchers  int    `json:"file_watchers"`
}

// State implements introspection.Introspectable.
func (s *FileStore) State() any {
	s.mu.RLock()
	st := StoreState{
		Path:          s.path,
		Authenticated: s.credential != "",
		UserID:        s.user.ID,
	}
	s.mu.RUnlock()

	s.subMu.Lock()
	st.Watchers = len(s.subs)
	st.FileWatchers = s.workers
	s.subMu.Unlock()
	return st
}

// ComponentType implements introspection.Component.
func (s *FileStore) ComponentType() string {
	return "session"
}

var _ introspection.Introspectable = (*FileStore)(nil)
var _ introspection.Component = (*FileStore)(nil)
