package core

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TrashFilter selects notes by their soft-delete flag.
type TrashFilter int

const (
	FilterActive TrashFilter = iota
	FilterTrashed
	FilterAll
)

// Filter narrows the note collection for a view.
// Match is a case-insensitive glob over titles ("meet*", "{todo,done} *").
type Filter struct {
	Trashed TrashFilter
	Match   string
}

// Validate checks that Match is a well-formed pattern.
func (f Filter) Validate() error {
	if f.Match == "" {
		return nil
	}
	if !doublestar.ValidatePattern(f.Match) {
		return fmt.Errorf("invalid title pattern %q", f.Match)
	}
	return nil
}

// Matches reports whether n belongs to the filtered view.
// A malformed pattern matches nothing.
func (f Filter) Matches(n Note) bool {
	switch f.Trashed {
	case FilterActive:
		if n.IsDeleted {
			return false
		}
	case FilterTrashed:
		if !n.IsDeleted {
			return false
		}
	}
	if f.Match == "" {
		return true
	}
	ok, err := doublestar.Match(strings.ToLower(f.Match), strings.ToLower(n.Title))
	return err == nil && ok
}

// Select returns the notes matching f, preserving order.
func Select(notes []Note, f Filter) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if f.Matches(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}
