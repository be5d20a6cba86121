package storage

import "github.com/go-git/go-git/v5/storage/memory"

// "Memory" storage keeps everything in process; nothing survives the process.
func NewMemoryStorage() GitStorage {
	return &memoryStorage{
		Storage: memory.NewStorage(),
	}
}

type memoryStorage struct {
	*memory.Storage
}

func (*memoryStorage) Close() error {
	return nil
}
