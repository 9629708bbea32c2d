package core

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Notes         int               `json:"notes"`
	Trashed       int               `json:"trashed"`
	Focused       string            `json:"focused,omitempty"`
	Pending       bool              `json:"pending"`
	LastError     string            `json:"last_error,omitempty"`
	Authenticated bool              `json:"authenticated"`
	Watchers      int               `json:"watchers"`
	Saves         map[string]string `json:"saves,omitempty"`
	StoreType     string            `json:"store_type"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.RLock()
	st := EngineState{
		Notes:   len(e.st.notes),
		Pending: e.st.inflight > 0,
	}
	for _, n := range e.st.notes {
		if n.IsDeleted {
			st.Trashed++
		}
	}
	if e.st.focused != nil {
		st.Focused = e.st.focused.ID
	}
	st.LastError = e.st.lastError
	if len(e.st.statuses) > 0 {
		st.Saves = make(map[string]string, len(e.st.statuses))
		for id, s := range e.st.statuses {
			st.Saves[id] = s.String()
		}
	}
	e.mu.RUnlock()

	e.subMu.Lock()
	st.Watchers = len(e.subs)
	e.subMu.Unlock()

	st.Authenticated = e.session != nil && e.session.Credential() != ""

	st.StoreType = "unknown"
	if e.store != nil {
		st.StoreType = "store"
		// Try to get component type if the store implements introspection.Component
		if comp, ok := e.store.(introspection.Component); ok {
			st.StoreType = comp.ComponentType()
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
