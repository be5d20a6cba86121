package git

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/vdye/commitview/internal/errors"
)

// Tag is a read-only view over an annotated tag, bound to a repository handle
// the same way Commit is.
type Tag struct {
	tag    *object.Tag
	handle Handle
}

func NewTag(handle Handle, tag *object.Tag) *Tag {
	return &Tag{
		tag:    tag,
		handle: handle,
	}
}

func (t *Tag) Id() plumbing.Hash {
	return t.tag.Hash
}

func (t *Tag) Name() string {
	return t.tag.Name
}

func (t *Tag) TargetId() plumbing.Hash {
	return t.tag.Target
}

// Commit follows the tag to the commit it points at. Tags of tags are peeled.
func (t *Tag) Commit() (*Commit, error) {
	if t.handle != nil {
		if err := t.handle.Err(); err != nil {
			return nil, errors.NewAccessError("peel", t.tag.Hash, err)
		}
	}
	tag := t.tag
	for tag.TargetType == plumbing.TagObject {
		target, err := tag.Object()
		if err != nil {
			return nil, errors.NewAccessError("peel", t.tag.Hash, err)
		}
		next, ok := target.(*object.Tag)
		if !ok {
			return nil, errors.NewAccessError("peel", t.tag.Hash, errors.ErrNotACommit)
		}
		tag = next
	}
	if tag.TargetType != plumbing.CommitObject {
		return nil, errors.NewAccessError("peel", t.tag.Hash, errors.ErrNotACommit)
	}
	commit, err := tag.Commit()
	if err != nil {
		return nil, errors.NewAccessError("peel", t.tag.Hash, err)
	}
	return NewCommit(t.handle, commit), nil
}
