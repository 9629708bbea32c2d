package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	notes := []Note{
		{ID: "1", Title: "Meeting notes"},
		{ID: "2", Title: "Groceries", IsDeleted: true},
		{ID: "3", Title: "meetup ideas"},
		{ID: "4", Title: "TODO weekend"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"Dashboard", Filter{}, []string{"1", "3", "4"}},
		{"Trash", Filter{Trashed: FilterTrashed}, []string{"2"}},
		{"All", Filter{Trashed: FilterAll}, []string{"1", "2", "3", "4"}},
		{"Prefix is case-insensitive", Filter{Match: "MEET*"}, []string{"1", "3"}},
		{"Alternation", Filter{Trashed: FilterAll, Match: "{groceries,todo *}"}, []string{"2", "4"}},
		{"Single char", Filter{Match: "meet??g*"}, []string{"1"}},
		{"No match", Filter{Match: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, noteIDs(Select(notes, tt.filter)))
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	assert.NoError(t, Filter{}.Validate())
	assert.NoError(t, Filter{Match: "a*{b,c}"}.Validate())
	assert.Error(t, Filter{Match: "[abc"}.Validate())
	assert.False(t, Filter{Match: "[abc"}.Matches(Note{Title: "a"}))
}
