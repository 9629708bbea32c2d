package core

import "fmt"

// SaveState is the phase of a note's background write.
type SaveState int

const (
	SaveIdle SaveState = iota
	SavePending
	SaveSaving
	SaveSaved
	SaveFailed
)

func (s SaveState) String() string {
	switch s {
	case SavePending:
		return "pending"
	case SaveSaving:
		return "saving"
	case SaveSaved:
		return "saved"
	case SaveFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SaveStatus reports whether local edits of a note reached the store.
// Reason is only set for SaveFailed.
type SaveStatus struct {
	State  SaveState
	Reason string
}

var (
	StatusIdle    = SaveStatus{State: SaveIdle}
	StatusPending = SaveStatus{State: SavePending}
	StatusSaving  = SaveStatus{State: SaveSaving}
	StatusSaved   = SaveStatus{State: SaveSaved}
)

// StatusFailed returns a failed status carrying the reason.
func StatusFailed(reason string) SaveStatus {
	return SaveStatus{State: SaveFailed, Reason: reason}
}

func (s SaveStatus) String() string {
	if s.State == SaveFailed && s.Reason != "" {
		return fmt.Sprintf("%s: %s", s.State, s.Reason)
	}
	return s.State.String()
}
