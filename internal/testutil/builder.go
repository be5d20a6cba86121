// Package testutil builds small, deterministic git repositories for tests.
// Objects are written straight into go-git storage, so no git binary is needed.
package testutil

import (
	"sort"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	gitstorage "github.com/go-git/go-git/v5/storage"
	"github.com/stretchr/testify/require"

	"github.com/vdye/commitview/internal/db"
	"github.com/vdye/commitview/internal/git"
	"github.com/vdye/commitview/internal/storage"
)

// Epoch is the author time of the first commit a Builder writes. Every
// following commit is one minute later.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("", 2*60*60))

// Builder writes blobs, trees, commits and refs into a store.
type Builder struct {
	t     testing.TB
	store gitstorage.Storer
	when  time.Time
}

func NewBuilder(t testing.TB, store gitstorage.Storer) *Builder {
	return &Builder{
		t:     t,
		store: store,
		when:  Epoch,
	}
}

// NewMemoryRepository returns an empty in-memory repository and a builder
// writing into it. The repository is closed when the test ends.
func NewMemoryRepository(t testing.TB) (*db.Repository, *Builder) {
	t.Helper()
	repo, err := db.NewRepository(storage.NewMemoryStorage(), true)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, NewBuilder(t, repo.Storage())
}

// NewDiskRepository initialises a non-bare repository in a temporary
// directory and returns its worktree path.
func NewDiskRepository(t testing.TB) (string, *Builder) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, NewBuilder(t, repo.Storer)
}

// Signature returns a signature for name at the builder's current time.
func (b *Builder) Signature(name string) object.Signature {
	return object.Signature{
		Name:  name,
		Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		When:  b.when,
	}
}

func (b *Builder) Blob(content string) plumbing.Hash {
	b.t.Helper()
	oid, err := db.WriteObject(b.store, git.NewBlob([]byte(content)))
	require.NoError(b.t, err)
	return oid
}

// Tree writes a tree holding files, keyed by slash separated path.
func (b *Builder) Tree(files map[string]string) plumbing.Hash {
	b.t.Helper()
	return b.tree(files)
}

func (b *Builder) tree(files map[string]string) plumbing.Hash {
	entries := []object.TreeEntry{}
	dirs := map[string]map[string]string{}
	for path, content := range files {
		if dir, rest, ok := strings.Cut(path, "/"); ok {
			if dirs[dir] == nil {
				dirs[dir] = map[string]string{}
			}
			dirs[dir][rest] = content
			continue
		}
		entries = append(entries, object.TreeEntry{
			Name: path,
			Mode: filemode.Regular,
			Hash: b.Blob(content),
		})
	}
	for dir, sub := range dirs {
		entries = append(entries, object.TreeEntry{
			Name: dir,
			Mode: filemode.Dir,
			Hash: b.tree(sub),
		})
	}

	// git orders directories as if their name ended in a slash
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := b.store.NewEncodedObject()
	require.NoError(b.t, tree.Encode(obj))
	oid, err := b.store.SetEncodedObject(obj)
	require.NoError(b.t, err)
	return oid
}

// Commit writes a commit by "Author Name", committed by "Committer Name".
func (b *Builder) Commit(message string, tree plumbing.Hash, parents ...plumbing.Hash) plumbing.Hash {
	b.t.Helper()
	return b.CommitWith(&object.Commit{
		Author:       b.Signature("Author Name"),
		Committer:    b.Signature("Committer Name"),
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	})
}

// CommitWith writes commit as given and advances the clock.
func (b *Builder) CommitWith(commit *object.Commit) plumbing.Hash {
	b.t.Helper()
	obj := b.store.NewEncodedObject()
	require.NoError(b.t, commit.Encode(obj))
	oid, err := b.store.SetEncodedObject(obj)
	require.NoError(b.t, err)
	b.when = b.when.Add(time.Minute)
	return oid
}

// Raw stores content as an object of type t exactly as given, for encodings
// go-git would not produce itself.
func (b *Builder) Raw(t plumbing.ObjectType, content string) plumbing.Hash {
	b.t.Helper()
	obj := b.store.NewEncodedObject()
	obj.SetType(t)
	w, err := obj.Writer()
	require.NoError(b.t, err)
	_, err = w.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())
	oid, err := b.store.SetEncodedObject(obj)
	require.NoError(b.t, err)
	return oid
}

// Tag writes an annotated tag and points refs/tags/<name> at it.
func (b *Builder) Tag(name string, target plumbing.Hash, targetType plumbing.ObjectType) plumbing.Hash {
	b.t.Helper()
	tag := &object.Tag{
		Name:       name,
		Tagger:     b.Signature("Tagger Name"),
		Message:    "release " + name + "\n",
		TargetType: targetType,
		Target:     target,
	}
	obj := b.store.NewEncodedObject()
	require.NoError(b.t, tag.Encode(obj))
	oid, err := b.store.SetEncodedObject(obj)
	require.NoError(b.t, err)
	b.SetRef(plumbing.NewTagReferenceName(name), oid)
	return oid
}

// SetBranch points refs/heads/<name> at oid.
func (b *Builder) SetBranch(name string, oid plumbing.Hash) {
	b.t.Helper()
	b.SetRef(plumbing.NewBranchReferenceName(name), oid)
}

func (b *Builder) SetRef(name plumbing.ReferenceName, oid plumbing.Hash) {
	b.t.Helper()
	require.NoError(b.t, b.store.SetReference(plumbing.NewHashReference(name, oid)))
}

// Linear writes n commits on top of each other, each with its own file, and
// returns their ids oldest first.
func (b *Builder) Linear(n int) []plumbing.Hash {
	b.t.Helper()
	var oids []plumbing.Hash
	files := map[string]string{}
	for i := 0; i < n; i++ {
		files["file"+string(rune('a'+i))+".txt"] = strings.Repeat("x", i+1) + "\n"
		var parents []plumbing.Hash
		if len(oids) > 0 {
			parents = append(parents, oids[len(oids)-1])
		}
		oids = append(oids, b.Commit("commit "+string(rune('a'+i))+"\n", b.Tree(files), parents...))
	}
	return oids
}
