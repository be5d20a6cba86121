package storage

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// "Filesystem" storage is the default Git on-disk storage. path is the git
// directory (the one holding objects/ and refs/).
func NewFilesystemStorage(path string, cacheSizeMiB int) GitStorage {
	return NewFilesystemStorageFS(osfs.New(path), cacheSizeMiB)
}

// NewFilesystemStorageFS stores objects in an already opened git directory,
// such as the one go-git builds for a linked worktree.
func NewFilesystemStorageFS(dotGit billy.Filesystem, cacheSizeMiB int) GitStorage {
	objectCache := cache.NewObjectLRUDefault()
	if cacheSizeMiB > 0 {
		objectCache = cache.NewObjectLRU(cache.FileSize(cacheSizeMiB) * cache.MiByte)
	}
	return &filesystemStorage{
		Storage: filesystem.NewStorage(dotGit, objectCache),
	}
}

type filesystemStorage struct {
	*filesystem.Storage
}

// Close releases packfiles kept open by the object storage.
func (s *filesystemStorage) Close() error {
	return s.Storage.Close()
}
