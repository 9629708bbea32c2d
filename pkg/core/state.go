package core

// State is a point-in-time copy of the engine's synchronization state.
type State struct {
	// Notes is the full known collection, newest-created first.
	Notes []Note
	// Focused is the note open for editing, or nil.
	Focused *Note
	// Pending reports an outstanding list or get round-trip.
	Pending bool
	// LastError is the message of the last failed list or get.
	LastError string
}

// Find returns the note with id from the snapshot.
func (s State) Find(id string) (Note, bool) {
	for _, n := range s.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

// state is the mutable state owned by the Engine. It is only changed by
// reduce, under the engine lock.
type state struct {
	notes     []Note
	focused   *Note
	inflight  int
	lastError string
	statuses  map[string]SaveStatus
}

func newState() *state {
	return &state{statuses: make(map[string]SaveStatus)}
}

func (s *state) snapshot() State {
	notes := make([]Note, len(s.notes))
	for i, n := range s.notes {
		notes[i] = n.Clone()
	}
	var focused *Note
	if s.focused != nil {
		f := s.focused.Clone()
		focused = &f
	}
	return State{
		Notes:     notes,
		Focused:   focused,
		Pending:   s.inflight > 0,
		LastError: s.lastError,
	}
}

func (s *state) index(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Actions are the request/response messages the reducer understands.
type action interface{ isAction() }

type fetchStarted struct{}

type fetchFailed struct{ message string }

type notesLoaded struct{ notes []Note }

type noteLoaded struct{ note Note }

type noteCreated struct{ note Note }

type noteUpdated struct{ note Note }

type noteFlagged struct {
	id      string
	deleted bool
}

type notePurged struct{ id string }

type focusCleared struct{}

type saveStatusSet struct {
	id     string
	status SaveStatus
}

type sessionReset struct{}

func (fetchStarted) isAction() {}
func (fetchFailed) isAction() {}
func (notesLoaded) isAction() {}
func (noteLoaded) isAction() {}
func (noteCreated) isAction() {}
func (noteUpdated) isAction() {}
func (noteFlagged) isAction() {}
func (notePurged) isAction() {}
func (focusCleared) isAction() {}
func (saveStatusSet) isAction() {}
func (sessionReset) isAction() {}

// reduce applies a to s and returns the event to publish, if any.
func reduce(s *state, a action) (Event, bool) {
	switch a := a.(type) {
	case fetchStarted:
		s.inflight++
		s.lastError = ""
		return Event{}, false

	case fetchFailed:
		s.settle()
		s.lastError = a.message
		return newEvent(EventFailed, ""), true

	case notesLoaded:
		s.settle()
		s.notes = dedupe(a.notes)
		return newEvent(EventLoaded, ""), true

	case noteLoaded:
		s.settle()
		s.focus(a.note)
		return newEvent(EventFocused, a.note.ID), true

	case noteCreated:
		if i := s.index(a.note.ID); i >= 0 {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
		}
		s.notes = append([]Note{a.note.Clone()}, s.notes...)
		s.focus(a.note)
		return newEvent(EventCreated, a.note.ID), true

	case noteUpdated:
		if i := s.index(a.note.ID); i >= 0 {
			s.notes[i] = a.note.Clone()
		}
		if s.focused != nil && s.focused.ID == a.note.ID {
			s.focus(a.note)
		}
		return newEvent(EventUpdated, a.note.ID), true

	case noteFlagged:
		if i := s.index(a.id); i >= 0 {
			s.notes[i].IsDeleted = a.deleted
		}
		if a.deleted {
			return newEvent(EventTrashed, a.id), true
		}
		return newEvent(EventRestored, a.id), true

	case notePurged:
		if i := s.index(a.id); i >= 0 {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
		}
		delete(s.statuses, a.id)
		return newEvent(EventPurged, a.id), true

	case focusCleared:
		s.focused = nil
		return newEvent(EventUnfocused, ""), true

	case saveStatusSet:
		s.statuses[a.id] = a.status
		return newEvent(EventSaveStatus, a.id), true

	case sessionReset:
		*s = *newState()
		return newEvent(EventReset, ""), true
	}
	return Event{}, false
}

func (s *state) settle() {
	if s.inflight > 0 {
		s.inflight--
	}
}

func (s *state) focus(n Note) {
	f := n.Clone()
	s.focused = &f
}

// dedupe copies notes keeping the first entry of every id.
func dedupe(notes []Note) []Note {
	seen := make(map[string]struct{}, len(notes))
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n.Clone())
	}
	return out
}
