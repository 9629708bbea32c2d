package autosave

import (
	"sort"

	"github.com/aretw0/introspection"
)

// SchedulerState exposes the internal state of the scheduler.
type SchedulerState struct {
	Open            string   `json:"open,omitempty"`
	QuietPeriod     string   `json:"quiet_period"`
	DiscardOnSwitch bool     `json:"discard_on_switch"`
	Scheduled       []string `json:"scheduled,omitempty"`
	Unsaved         []string `json:"unsaved,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Scheduler) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerState{
		QuietPeriod:     s.quiet.String(),
		DiscardOnSwitch: s.discardOnSwitch,
	}
	if s.draft != nil {
		st.Open = s.draft.ID
	}
	for id, h := range s.handles {
		if h.timer != nil {
			st.Scheduled = append(st.Scheduled, id)
		}
		if !h.dirty.IsEmpty() || !h.sending.IsEmpty() {
			st.Unsaved = append(st.Unsaved, id)
		}
	}
	sort.Strings(st.Scheduled)
	sort.Strings(st.Unsaved)
	return st
}

// ComponentType implements introspection.Component.
func (s *Scheduler) ComponentType() string {
	return "autosave"
}

var _ introspection.Introspectable = (*Scheduler)(nil)
var _ introspection.Component = (*Scheduler)(nil)
