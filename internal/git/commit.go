package git

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/vdye/commitview/internal/errors"
)

// Commit is a read-only view over a commit record owned by an open repository.
// It must not be used after the repository it came from is closed; operations
// that need the object store check the handle and fail once it is gone.
type Commit struct {
	commit *object.Commit
	handle Handle
}

// NewCommit wraps a commit decoded by go-git. handle may be nil, in which case
// no validity check is made before reading the object store.
func NewCommit(handle Handle, commit *object.Commit) *Commit {
	return &Commit{
		commit: commit,
		handle: handle,
	}
}

// CopyCommit wraps a copy of commit, so later changes to the caller's record
// are not seen through the view.
func CopyCommit(handle Handle, commit *object.Commit) *Commit {
	c := *commit
	c.ParentHashes = append([]plumbing.Hash(nil), commit.ParentHashes...)
	return NewCommit(handle, &c)
}

// Object returns the underlying go-git commit.
func (c *Commit) Object() *object.Commit {
	return c.commit
}

func (c *Commit) Id() plumbing.Hash {
	return c.commit.Hash
}

func (c *Commit) ParentCount() int {
	return c.commit.NumParents()
}

// Tree resolves the tree the commit points at.
func (c *Commit) Tree() (*object.Tree, error) {
	if err := c.valid("tree"); err != nil {
		return nil, err
	}
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, errors.NewAccessError("tree", c.commit.Hash, err)
	}
	return tree, nil
}

func (c *Commit) TreeId() plumbing.Hash {
	return c.commit.TreeHash
}

// ParentId returns the id of the n-th parent without loading it.
func (c *Commit) ParentId(n int) (plumbing.Hash, error) {
	if n < 0 || n >= len(c.commit.ParentHashes) {
		return plumbing.ZeroHash, errors.NewAccessError("parent", c.commit.Hash, object.ErrParentNotFound)
	}
	return c.commit.ParentHashes[n], nil
}

// Parent loads the n-th parent (zero based). The returned view shares this
// commit's repository handle.
func (c *Commit) Parent(n int) (*Commit, error) {
	if err := c.valid("parent"); err != nil {
		return nil, err
	}
	// go-git indexes ParentHashes directly, so a negative n would panic
	if n < 0 {
		return nil, errors.NewAccessError("parent", c.commit.Hash, object.ErrParentNotFound)
	}
	parent, err := c.commit.Parent(n)
	if err != nil {
		return nil, errors.NewAccessError("parent", c.commit.Hash, err)
	}
	return NewCommit(c.handle, parent), nil
}

// Time is the author timestamp.
func (c *Commit) Time() Time {
	return NewTime(c.commit.Author.When)
}

func (c *Commit) Author() object.Signature {
	return c.commit.Author
}

func (c *Commit) Committer() object.Signature {
	return c.commit.Committer
}

// Message returns the full commit message. ok is false when the raw message
// is not valid UTF-8.
func (c *Commit) Message() (string, bool) {
	if !utf8.ValidString(c.commit.Message) {
		return "", false
	}
	return c.commit.Message, true
}

// Summary is the first line of the message with surrounding whitespace
// removed, or "" when the message is absent.
func (c *Commit) Summary() string {
	msg, ok := c.Message()
	if !ok {
		return ""
	}
	msg = strings.TrimLeft(msg, "\n")
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

func (c *Commit) Oid() plumbing.Hash {
	return c.commit.Hash
}

func (c *Commit) Type() plumbing.ObjectType {
	return plumbing.CommitObject
}

// RawGitBuffer re-encodes the commit in git's object format.
func (c *Commit) RawGitBuffer() ([]byte, error) {
	obj := &plumbing.MemoryObject{}
	if err := c.commit.Encode(obj); err != nil {
		return nil, errors.NewAccessError("encode", c.commit.Hash, err)
	}
	reader, err := obj.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (c *Commit) valid(op string) error {
	if c.handle == nil {
		return nil
	}
	if err := c.handle.Err(); err != nil {
		return errors.NewAccessError(op, c.commit.Hash, err)
	}
	return nil
}
