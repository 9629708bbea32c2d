package core

import (
	"fmt"
	"time"
)

// EventType represents the kind of change applied to the engine state.
type EventType string

const (
	EventLoaded     EventType = "LOADED"
	EventFocused    EventType = "FOCUSED"
	EventCreated    EventType = "CREATED"
	EventUpdated    EventType = "UPDATED"
	EventTrashed    EventType = "TRASHED"
	EventRestored   EventType = "RESTORED"
	EventPurged     EventType = "PURGED"
	EventUnfocused  EventType = "UNFOCUSED"
	EventReset      EventType = "RESET"
	EventFailed     EventType = "FAILED"
	EventSaveStatus EventType = "SAVE_STATUS"
)

// Event represents a reconciled change. Presentation layers re-render on it.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	if e.ID == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}

func newEvent(t EventType, id string) Event {
	return Event{Type: t, ID: id, Timestamp: time.Now().Unix()}
}

// SessionEvent is emitted by a Session when the credential changes.
// An empty Credential means the user logged out.
type SessionEvent struct {
	Credential string
}

// LoggedIn reports whether the event carries a credential.
func (e SessionEvent) LoggedIn() bool { return e.Credential != "" }
