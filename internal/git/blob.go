package git

import (
	"github.com/go-git/go-git/v5/plumbing"
)

type blob struct {
	oid    plumbing.Hash
	buffer []byte
}

// NewBlob hashes buffer as a git blob.
func NewBlob(buffer []byte) Object {
	return &blob{
		oid:    plumbing.ComputeHash(plumbing.BlobObject, buffer),
		buffer: buffer,
	}
}

func (b *blob) Oid() plumbing.Hash {
	return b.oid
}

func (b *blob) Type() plumbing.ObjectType {
	return plumbing.BlobObject
}

func (b *blob) RawGitBuffer() ([]byte, error) {
	return b.buffer, nil
}
