// Package errors provides sentinel errors and the repository access error type.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrRepositoryAccess matches every *AccessError
	ErrRepositoryAccess = errors.New("repository access error")

	// ErrRepositoryClosed indicates that the repository handle backing a commit was closed
	ErrRepositoryClosed = errors.New("repository is closed")

	// ErrNotACommit indicates that an object exists but is not a commit
	ErrNotACommit = errors.New("object is not a commit")

	// ErrUnknownBackend indicates an unsupported storage backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// AccessError wraps a failure reported by the repository access layer.
// The underlying error is kept as-is and is reachable through Unwrap.
type AccessError struct {
	Op  string
	Oid plumbing.Hash
	Err error
}

func (e *AccessError) Error() string {
	if e.Oid.IsZero() {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Oid, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrRepositoryAccess
func (e *AccessError) Is(target error) bool {
	return target == ErrRepositoryAccess
}

// NewAccessError creates a new AccessError
func NewAccessError(op string, oid plumbing.Hash, err error) *AccessError {
	return &AccessError{
		Op:  op,
		Oid: oid,
		Err: err,
	}
}
