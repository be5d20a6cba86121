package git_test

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vdye/commitview/internal/db"
	cerrors "github.com/vdye/commitview/internal/errors"
	"github.com/vdye/commitview/internal/git"
	"github.com/vdye/commitview/internal/testutil"
)

type CommitTestSuite struct {
	suite.Suite

	repo    *db.Repository
	builder *testutil.Builder
}

func (s *CommitTestSuite) SetupTest() {
	s.repo, s.builder = testutil.NewMemoryRepository(s.T())
}

func (s *CommitTestSuite) commit(oid plumbing.Hash) *git.Commit {
	c, err := s.repo.Commit(oid)
	require.NoError(s.T(), err)
	return c
}

func (s *CommitTestSuite) TestRootCommitHasNoParent() {
	root := s.commit(s.builder.Commit("root\n", s.builder.Tree(nil)))

	assert.Equal(s.T(), 0, root.ParentCount())

	_, err := root.Parent(0)
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, object.ErrParentNotFound)
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryAccess)

	_, err = root.ParentId(0)
	assert.ErrorIs(s.T(), err, object.ErrParentNotFound)
}

func (s *CommitTestSuite) TestParentByIndex() {
	tree := s.builder.Tree(map[string]string{"a.txt": "a\n"})
	parents := []plumbing.Hash{
		s.builder.Commit("one\n", tree),
		s.builder.Commit("two\n", tree),
		s.builder.Commit("three\n", tree),
	}

	for n := 1; n <= len(parents); n++ {
		merge := s.commit(s.builder.Commit("merge\n", tree, parents[:n]...))
		require.Equal(s.T(), n, merge.ParentCount())

		for i := 0; i < n; i++ {
			parent, err := merge.Parent(i)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), parents[i], parent.Id())

			id, err := merge.ParentId(i)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), parents[i], id)
		}

		_, err := merge.Parent(n)
		assert.ErrorIs(s.T(), err, object.ErrParentNotFound)
		_, err = merge.Parent(-1)
		assert.ErrorIs(s.T(), err, object.ErrParentNotFound)
	}
}

func (s *CommitTestSuite) TestMissingParent() {
	missing := plumbing.NewHash("1111111111111111111111111111111111111111")
	c := s.commit(s.builder.Commit("orphan\n", s.builder.Tree(nil), missing))

	assert.Equal(s.T(), 1, c.ParentCount())
	id, err := c.ParentId(0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), missing, id)

	_, err = c.Parent(0)
	assert.ErrorIs(s.T(), err, plumbing.ErrObjectNotFound)
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryAccess)
}

func (s *CommitTestSuite) TestIdentifierIsStable() {
	oid := s.builder.Commit("stable\n", s.builder.Tree(nil))

	first := s.commit(oid)
	second := s.commit(oid)
	assert.Equal(s.T(), oid, first.Id())
	assert.Equal(s.T(), first.Id(), second.Id())
	assert.Equal(s.T(), first.Id(), first.Oid())
}

func (s *CommitTestSuite) TestConversionIsLossless() {
	native, err := object.GetCommit(s.repo.Storage(), s.builder.Commit("native\n", s.builder.Tree(nil)))
	require.NoError(s.T(), err)

	byValue := git.NewCommit(s.repo, native)
	assert.Equal(s.T(), native.Hash, byValue.Id())
	assert.Same(s.T(), native, byValue.Object())

	byCopy := git.CopyCommit(s.repo, native)
	assert.Equal(s.T(), native.Hash, byCopy.Id())
	assert.NotSame(s.T(), native, byCopy.Object())

	native.Message = "changed\n"
	native.ParentHashes = append(native.ParentHashes, plumbing.ZeroHash)
	msg, ok := byCopy.Message()
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "native\n", msg)
	assert.Equal(s.T(), 0, byCopy.ParentCount())
}

func (s *CommitTestSuite) TestTreeIdMatchesTree() {
	treeID := s.builder.Tree(map[string]string{
		"README.md":   "# readme\n",
		"src/main.go": "package main\n",
	})
	c := s.commit(s.builder.Commit("tree\n", treeID))

	tree, err := c.Tree()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), treeID, c.TreeId())
	assert.Equal(s.T(), c.TreeId(), tree.Hash)

	file, err := tree.File("src/main.go")
	require.NoError(s.T(), err)
	contents, err := file.Contents()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "package main\n", contents)
}

func (s *CommitTestSuite) TestMissingTree() {
	missing := plumbing.NewHash("2222222222222222222222222222222222222222")
	c := s.commit(s.builder.Commit("no tree\n", missing))

	assert.Equal(s.T(), missing, c.TreeId())
	_, err := c.Tree()
	assert.ErrorIs(s.T(), err, plumbing.ErrObjectNotFound)
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryAccess)
}

func (s *CommitTestSuite) TestMessage() {
	tree := s.builder.Tree(nil)

	valid := s.commit(s.builder.Commit("subject line\n\nbody ✓\n", tree))
	msg, ok := valid.Message()
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "subject line\n\nbody ✓\n", msg)
	assert.Equal(s.T(), "subject line", valid.Summary())

	invalid := s.commit(s.builder.Commit("bad \xff\xfe bytes\n", tree))
	msg, ok = invalid.Message()
	assert.False(s.T(), ok)
	assert.Empty(s.T(), msg)
	assert.Empty(s.T(), invalid.Summary())
}

func (s *CommitTestSuite) TestSignaturesAndTime() {
	c := s.commit(s.builder.Commit("signed\n", s.builder.Tree(nil)))

	author := c.Author()
	assert.Equal(s.T(), "Author Name", author.Name)
	assert.Equal(s.T(), "author.name@example.com", author.Email)
	assert.True(s.T(), author.When.Equal(testutil.Epoch))

	committer := c.Committer()
	assert.Equal(s.T(), "Committer Name", committer.Name)
	assert.Equal(s.T(), "committer.name@example.com", committer.Email)

	ts := c.Time()
	assert.Equal(s.T(), testutil.Epoch.Unix(), ts.Seconds)
	assert.Equal(s.T(), 120, ts.OffsetMinutes)
	assert.True(s.T(), ts.Time().Equal(testutil.Epoch))
}

func (s *CommitTestSuite) TestTimeUsesAuthorDate() {
	authored := time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("", -(5*60+30)*60))
	committed := authored.Add(48 * time.Hour)
	c := s.commit(s.builder.CommitWith(&object.Commit{
		Author:    object.Signature{Name: "A", Email: "a@example.com", When: authored},
		Committer: object.Signature{Name: "C", Email: "c@example.com", When: committed},
		Message:   "rebased\n",
		TreeHash:  s.builder.Tree(nil),
	}))

	ts := c.Time()
	assert.Equal(s.T(), authored.Unix(), ts.Seconds)
	assert.Equal(s.T(), -330, ts.OffsetMinutes)
	assert.Equal(s.T(), "1577954045 -0530", ts.String())
}

func (s *CommitTestSuite) TestRawGitBufferHashesToId() {
	c := s.commit(s.builder.Commit("raw\n", s.builder.Tree(nil)))

	buf, err := c.RawGitBuffer()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), c.Id(), plumbing.ComputeHash(plumbing.CommitObject, buf))
	assert.Equal(s.T(), plumbing.CommitObject, c.Type())
}

func (s *CommitTestSuite) TestClosedRepository() {
	parent := s.builder.Commit("parent\n", s.builder.Tree(nil))
	c := s.commit(s.builder.Commit("child\n", s.builder.Tree(nil), parent))
	require.NoError(s.T(), s.repo.Close())

	_, err := c.Tree()
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryClosed)
	_, err = c.Parent(0)
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryClosed)

	// reads of the decoded record keep working
	assert.Equal(s.T(), 1, c.ParentCount())
	assert.Equal(s.T(), "Author Name", c.Author().Name)
	id, err := c.ParentId(0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), parent, id)
}

func (s *CommitTestSuite) TestParentSharesHandle() {
	root := s.builder.Commit("root\n", s.builder.Tree(nil))
	c := s.commit(s.builder.Commit("child\n", s.builder.Tree(nil), root))

	parent, err := c.Parent(0)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Close())

	_, err = parent.Tree()
	assert.ErrorIs(s.T(), err, cerrors.ErrRepositoryClosed)
}

func TestCommit(t *testing.T) {
	suite.Run(t, new(CommitTestSuite))
}

func TestCommitWithoutHandle(t *testing.T) {
	repo, builder := testutil.NewMemoryRepository(t)
	oid := builder.Commit("detached\n", builder.Tree(nil))

	native, err := object.GetCommit(repo.Storage(), oid)
	require.NoError(t, err)

	c := git.NewCommit(nil, native)
	tree, err := c.Tree()
	require.NoError(t, err)
	assert.Equal(t, c.TreeId(), tree.Hash)
}

func TestTimeString(t *testing.T) {
	assert.Equal(t, "0 +0000", git.Time{}.String())
	assert.Equal(t, "1700000000 +0100", git.Time{Seconds: 1700000000, OffsetMinutes: 60}.String())
	assert.Equal(t, "1700000000 -0045", git.Time{Seconds: 1700000000, OffsetMinutes: -45}.String())
}
