package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrUnauthenticated is returned when an operation needs a credential and
	// the session has none.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrCredentialInvalid is returned when a stored credential cannot be decoded.
	ErrCredentialInvalid = errors.New("credential is invalid")

	// ErrNotFound is returned by stores when the caller owns no note with the id.
	ErrNotFound = errors.New("note not found")
)

// Op names a remote store operation. It selects the generic failure message.
type Op string

const (
	OpList    Op = "list"
	OpGet     Op = "get"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpTrash   Op = "trash"
	OpRestore Op = "restore"
	OpPurge   Op = "purge"
)

// DefaultMessage is the text used when the store gives no message of its own.
func (o Op) DefaultMessage() string {
	switch o {
	case OpList:
		return "Failed to fetch notes"
	case OpGet:
		return "Failed to fetch note"
	case OpCreate:
		return "Failed to create note"
	case OpUpdate:
		return "Failed to update note"
	case OpTrash:
		return "Failed to delete note"
	case OpRestore:
		return "Failed to restore note"
	case OpPurge:
		return "Failed to permanently delete note"
	default:
		return "Unknown error occurred"
	}
}

// RemoteError is a failed round-trip to the remote note store: either a
// non-2xx response or a transport error (Status 0).
type RemoteError struct {
	Op      Op
	Status  int
	Message string
	Err     error
}

// Error returns the message verbatim, as reported by the store.
func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op.DefaultMessage()
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewRemoteError builds a RemoteError for a non-2xx response. An empty
// message falls back to the operation's default text.
func NewRemoteError(op Op, status int, message string) *RemoteError {
	if message == "" {
		message = op.DefaultMessage()
	}
	return &RemoteError{Op: op, Status: status, Message: message}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// MessageOf returns the user-facing text of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Error()
	}
	return err.Error()
}

func wrapOp(op Op, id string, err error) error {
	if id == "" {
		return fmt.Errorf("%s notes: %w", op, err)
	}
	return fmt.Errorf("%s note %s: %w", op, id, err)
}
