package db

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	log "github.com/sirupsen/logrus"

	"github.com/vdye/commitview/internal/git"
	"github.com/vdye/commitview/internal/storage"
)

// CopyOptions controls CopyHistory.
type CopyOptions struct {
	// Depth limits how many generations are copied, counting the tip as 1.
	// Zero copies the whole history.
	Depth int
	// Ref is pointed at the tip once the copy is done. Empty means the branch
	// HEAD of the destination refers to.
	Ref plumbing.ReferenceName
}

// CopyStats summarises a CopyHistory run.
type CopyStats struct {
	Commits int
	Objects int
	// Shallow lists copied commits whose parents were left out by Depth.
	Shallow []plumbing.Hash
}

type copier struct {
	src   Database
	dst   storage.GitStorage
	seen  map[plumbing.Hash]bool
	stats CopyStats
}

// CopyHistory copies tip, its ancestors and every tree and blob they reference
// from src into dst.
func CopyHistory(ctx context.Context, src Database, dst storage.GitStorage, tip *git.Commit, opts CopyOptions) (*CopyStats, error) {
	c := &copier{
		src:  src,
		dst:  dst,
		seen: make(map[plumbing.Hash]bool),
	}

	type queued struct {
		commit *git.Commit
		depth  int
	}
	queue := []queued{{tip, 1}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return &c.stats, err
		}
		next := queue[0]
		queue = queue[1:]
		if c.seen[next.commit.Id()] {
			continue
		}

		if err := c.copyCommit(next.commit); err != nil {
			return &c.stats, err
		}

		if opts.Depth > 0 && next.depth >= opts.Depth {
			if next.commit.ParentCount() > 0 {
				c.stats.Shallow = append(c.stats.Shallow, next.commit.Id())
			}
			continue
		}
		for i := 0; i < next.commit.ParentCount(); i++ {
			parent, err := next.commit.Parent(i)
			if err != nil {
				return &c.stats, err
			}
			queue = append(queue, queued{parent, next.depth + 1})
		}
	}

	if len(c.stats.Shallow) > 0 {
		if err := c.markShallow(); err != nil {
			return &c.stats, err
		}
	}
	if err := c.pointRef(opts.Ref, tip.Id()); err != nil {
		return &c.stats, err
	}

	log.WithFields(log.Fields{
		"tip":     tip.Id(),
		"commits": c.stats.Commits,
		"objects": c.stats.Objects,
		"shallow": len(c.stats.Shallow),
	}).Info("copied history")
	return &c.stats, nil
}

func (c *copier) copyCommit(commit *git.Commit) error {
	c.seen[commit.Id()] = true

	tree, err := commit.Tree()
	if err != nil {
		return err
	}
	if err := c.copyTree(tree); err != nil {
		return err
	}

	if _, err := WriteObject(c.dst, commit); err != nil {
		// go-git does not keep every commit header, so fall back to the
		// stored encoding when re-encoding changes the id
		log.WithError(err).WithField("commit", commit.Id()).Debug("copying raw commit")
		if err := c.copyRaw(commit.Id()); err != nil {
			return err
		}
	} else {
		c.stats.Objects++
	}
	c.stats.Commits++
	return nil
}

func (c *copier) copyTree(tree *object.Tree) error {
	if c.seen[tree.Hash] {
		return nil
	}
	if err := c.copyRaw(tree.Hash); err != nil {
		return err
	}

	for _, entry := range tree.Entries {
		switch entry.Mode {
		case filemode.Submodule:
			// commits of another repository
		case filemode.Dir:
			sub, err := tree.Tree(entry.Name)
			if err != nil {
				return fmt.Errorf("failed to read tree %s: %w", entry.Name, err)
			}
			if err := c.copyTree(sub); err != nil {
				return err
			}
		default:
			if c.seen[entry.Hash] {
				continue
			}
			if err := c.copyRaw(entry.Hash); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *copier) copyRaw(oid plumbing.Hash) error {
	obj, err := c.src.ReadObject(oid)
	if err != nil {
		return err
	}
	if _, err := c.dst.SetEncodedObject(obj); err != nil {
		return fmt.Errorf("failed to write object %s: %w", oid, err)
	}
	c.seen[oid] = true
	c.stats.Objects++
	return nil
}

func (c *copier) markShallow() error {
	shallow, err := c.dst.Shallow()
	if err != nil {
		return err
	}
	return c.dst.SetShallow(append(shallow, c.stats.Shallow...))
}

func (c *copier) pointRef(name plumbing.ReferenceName, tip plumbing.Hash) error {
	if name == "" {
		head, err := c.dst.Reference(plumbing.HEAD)
		if err != nil {
			return fmt.Errorf("failed to read HEAD: %w", err)
		}
		name = head.Name()
		if head.Type() == plumbing.SymbolicReference {
			name = head.Target()
		}
	}
	return c.dst.SetReference(plumbing.NewHashReference(name, tip))
}

// WriteObject stores obj in dst under its own id. It fails without writing if
// the encoding does not hash to obj.Oid().
func WriteObject(dst storer.EncodedObjectStorer, obj git.Object) (plumbing.Hash, error) {
	buf, err := obj.RawGitBuffer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if h := plumbing.ComputeHash(obj.Type(), buf); h != obj.Oid() {
		return plumbing.ZeroHash, fmt.Errorf("encoding of %s hashes to %s", obj.Oid(), h)
	}

	enc := dst.NewEncodedObject()
	enc.SetType(obj.Type())
	enc.SetSize(int64(len(buf)))
	w, err := enc.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(buf); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return dst.SetEncodedObject(enc)
}
