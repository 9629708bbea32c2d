package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError_Message(t *testing.T) {
	t.Run("Store message is used verbatim", func(t *testing.T) {
		err := NewRemoteError(OpUpdate, 404, "Note not found")
		assert.Equal(t, "Note not found", err.Error())
	})

	t.Run("Generic message per operation", func(t *testing.T) {
		want := map[Op]string{
			OpList:    "Failed to fetch notes",
			OpGet:     "Failed to fetch note",
			OpCreate:  "Failed to create note",
			OpUpdate:  "Failed to update note",
			OpTrash:   "Failed to delete note",
			OpRestore: "Failed to restore note",
			OpPurge:   "Failed to permanently delete note",
		}
		for op, msg := range want {
			assert.Equal(t, msg, NewRemoteError(op, 500, "").Error())
		}
		assert.Equal(t, "Unknown error occurred", Op("other").DefaultMessage())
	})

	t.Run("Transport error keeps its message", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := &RemoteError{Op: OpList, Err: cause}
		assert.Equal(t, cause.Error(), err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestMessageOf(t *testing.T) {
	wrapped := wrapOp(OpGet, "n1", NewRemoteError(OpGet, 403, "Not authorized"))
	assert.Equal(t, "get note n1: Not authorized", wrapped.Error())
	assert.Equal(t, "Not authorized", MessageOf(wrapped))
	assert.Equal(t, 403, StatusOf(wrapped))

	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
	assert.Empty(t, MessageOf(nil))
	assert.Zero(t, StatusOf(errors.New("x")))
}
