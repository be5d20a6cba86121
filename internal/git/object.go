package git

import "github.com/go-git/go-git/v5/plumbing"

// Object is a git object that can be written back out in its canonical encoding.
type Object interface {
	Oid() plumbing.Hash
	Type() plumbing.ObjectType
	RawGitBuffer() ([]byte, error)
}

// Handle is the repository a view was read from. Err returns a non-nil error
// once the repository can no longer be used.
type Handle interface {
	Err() error
}
