package db

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/vdye/commitview/internal/git"
)

// Database is the read side of a repository: raw objects and the commit
// views built on them.
type Database interface {
	ReadObject(oid plumbing.Hash) (plumbing.EncodedObject, error)
	Commit(oid plumbing.Hash) (*git.Commit, error)
	ResolveCommit(rev string) (*git.Commit, error)
	Shallow() ([]plumbing.Hash, error)
	Close() error
}
