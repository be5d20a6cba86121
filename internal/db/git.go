package db

import (
	"fmt"
	"sync/atomic"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	log "github.com/sirupsen/logrus"

	"github.com/vdye/commitview/internal/errors"
	"github.com/vdye/commitview/internal/git"
	"github.com/vdye/commitview/internal/storage"
)

// Repository returns object database information using go-git. Commit views
// handed out by a Repository stay bound to it: once it is closed they can no
// longer reach the object store.
type Repository struct {
	repo   *gogit.Repository
	store  storage.GitStorage
	closed atomic.Bool
}

var _ Database = (*Repository)(nil)

// Open opens the repository described by opts. For the filesystem backend
// opts.Path may be a worktree, a linked worktree, any directory inside one,
// or a git directory; other backends are created when missing.
func Open(opts storage.Options) (*Repository, error) {
	if opts.Backend == storage.BackendFilesystem || opts.Backend == "" {
		return openFilesystem(opts)
	}

	store, err := storage.Open(opts)
	if err != nil {
		return nil, err
	}

	repo, err := NewRepository(store, true)
	if err != nil {
		store.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"backend": opts.Backend,
		"path":    opts.Path,
	}).Debug("opened repository")
	return repo, nil
}

// openFilesystem lets go-git find the git directory, then reopens it with the
// configured object cache.
func openFilesystem(opts storage.Options) (*Repository, error) {
	path := opts.Path
	if path == "" {
		path = "."
	}

	var (
		found *gogit.Repository
		err   error
	)
	// A bare repository is only found when it is opened directly; searching
	// parent directories looks for .git entries.
	for _, detect := range []bool{false, true} {
		found, err = gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
			DetectDotGit:          detect,
			EnableDotGitCommonDir: true,
		})
		if err != gogit.ErrRepositoryNotExists {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	fsStore, ok := found.Storer.(*filesystem.Storage)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected storage %T", path, found.Storer)
	}
	dotGit := fsStore.Filesystem()
	if err := fsStore.Close(); err != nil {
		return nil, err
	}

	repo, err := NewRepository(storage.NewFilesystemStorageFS(dotGit, opts.CacheSizeMiB), false)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"backend": storage.BackendFilesystem,
		"path":    path,
		"gitDir":  dotGit.Root(),
	}).Debug("opened repository")
	return repo, nil
}

// NewRepository takes ownership of store. When create is set an empty
// repository is initialised if store holds none.
func NewRepository(store storage.GitStorage, create bool) (*Repository, error) {
	repo, err := gogit.Open(store, nil)
	if err == gogit.ErrRepositoryNotExists && create {
		repo, err = gogit.Init(store, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &Repository{
		repo:  repo,
		store: store,
	}, nil
}

// Err reports whether the repository can still be used.
func (r *Repository) Err() error {
	if r.closed.Load() {
		return errors.ErrRepositoryClosed
	}
	return nil
}

// Storage returns the object store backing the repository.
func (r *Repository) Storage() storage.GitStorage {
	return r.store
}

func (r *Repository) ReadObject(oid plumbing.Hash) (plumbing.EncodedObject, error) {
	if err := r.Err(); err != nil {
		return nil, errors.NewAccessError("read", oid, err)
	}
	obj, err := r.store.EncodedObject(plumbing.AnyObject, oid)
	if err != nil {
		return nil, errors.NewAccessError("read", oid, err)
	}
	return obj, nil
}

// Commit looks up a commit by id. Annotated tags are peeled to the commit
// they point at.
func (r *Repository) Commit(oid plumbing.Hash) (*git.Commit, error) {
	obj, err := r.ReadObject(oid)
	if err != nil {
		return nil, err
	}

	switch obj.Type() {
	case plumbing.CommitObject:
		commit, err := object.DecodeCommit(r.store, obj)
		if err != nil {
			return nil, errors.NewAccessError("commit", oid, err)
		}
		return git.NewCommit(r, commit), nil
	case plumbing.TagObject:
		tag, err := object.DecodeTag(r.store, obj)
		if err != nil {
			return nil, errors.NewAccessError("commit", oid, err)
		}
		return git.NewTag(r, tag).Commit()
	default:
		return nil, errors.NewAccessError("commit", oid, fmt.Errorf("%w (%s)", errors.ErrNotACommit, obj.Type()))
	}
}

// ResolveCommit resolves a revision (branch, tag, hash, HEAD~2, ...) to a
// commit. An empty revision means HEAD.
func (r *Repository) ResolveCommit(rev string) (*git.Commit, error) {
	if rev == "" {
		rev = string(plumbing.HEAD)
	}
	if err := r.Err(); err != nil {
		return nil, errors.NewAccessError("resolve "+rev, plumbing.ZeroHash, err)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.NewAccessError("resolve "+rev, plumbing.ZeroHash, err)
	}
	return r.Commit(*hash)
}

// Shallow lists the commits whose parents are not in the repository.
func (r *Repository) Shallow() ([]plumbing.Hash, error) {
	if err := r.Err(); err != nil {
		return nil, errors.NewAccessError("shallow", plumbing.ZeroHash, err)
	}
	commits, err := r.store.Shallow()
	if err != nil {
		return nil, errors.NewAccessError("shallow", plumbing.ZeroHash, err)
	}
	return commits, nil
}

func (r *Repository) Head() (*git.Commit, error) {
	return r.ResolveCommit(string(plumbing.HEAD))
}

// Close releases the storage. It is safe to call more than once.
func (r *Repository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.store.Close()
}
