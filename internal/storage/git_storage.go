package storage

import (
	"fmt"

	"github.com/go-git/go-git/v5/storage"

	"github.com/vdye/commitview/internal/errors"
)

type GitStorage interface {
	storage.Storer
	Close() error
}

type Backend string

const (
	BackendFilesystem Backend = "filesystem"
	BackendPebble     Backend = "pebble"
	BackendMemory     Backend = "memory"
)

// Options configures Open.
type Options struct {
	Backend Backend
	// Path is the git directory for the filesystem backend and the store root
	// for pebble. Ignored for memory.
	Path string
	// CacheSizeMiB bounds the filesystem backend's object cache. Zero uses the
	// go-git default.
	CacheSizeMiB int
}

// Open creates the storage selected by opts.Backend.
func Open(opts Options) (GitStorage, error) {
	switch opts.Backend {
	case BackendFilesystem, "":
		return NewFilesystemStorage(opts.Path, opts.CacheSizeMiB), nil
	case BackendPebble:
		return NewPebbleStorage(opts.Path)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, opts.Backend)
	}
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(name); b {
	case BackendFilesystem, BackendPebble, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownBackend, name)
	}
}
