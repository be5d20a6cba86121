package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdye/commitview/internal/cli"
	"github.com/vdye/commitview/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func diskRepository(t *testing.T) (string, []plumbing.Hash) {
	t.Helper()
	dir, builder := testutil.NewDiskRepository(t)
	oids := builder.Linear(3)
	builder.SetBranch("master", oids[2])
	return dir, oids
}

func TestShow(t *testing.T) {
	dir, oids := diskRepository(t)

	out, err := run(t, "show", "--repo", dir, "HEAD~1")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "commit "+oids[1].String(), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "tree "))
	assert.Equal(t, "parent "+oids[0].String(), lines[2])

	authored := testutil.Epoch.Add(time.Minute)
	assert.Equal(t, fmt.Sprintf("author Author Name <author.name@example.com> %d +0200", authored.Unix()), lines[3])
	assert.Equal(t, fmt.Sprintf("committer Committer Name <committer.name@example.com> %d +0200", authored.Unix()), lines[4])
	assert.Equal(t, fmt.Sprintf("date %d +0200", authored.Unix()), lines[5])
	assert.Equal(t, "", lines[6])
	assert.Equal(t, "    commit b", lines[7])
}

func TestShowInvalidMessage(t *testing.T) {
	dir, builder := testutil.NewDiskRepository(t)
	oid := builder.Commit("caf\xe9\n", builder.Tree(nil))
	builder.SetBranch("master", oid)

	out, err := run(t, "show", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "    (message is not valid UTF-8)\n")
	assert.NotContains(t, out, "caf")
}

func TestShowRaw(t *testing.T) {
	dir, oids := diskRepository(t)

	out, err := run(t, "show", "--raw", "--repo", dir, oids[0].String())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tree "))
	assert.Equal(t, oids[0], plumbing.ComputeHash(plumbing.CommitObject, []byte(out)))
}

func TestShowRawKeepsStoredEncoding(t *testing.T) {
	dir, builder := testutil.NewDiskRepository(t)
	content := "tree " + builder.Tree(nil).String() + "\n" +
		"author A <a@example.com> 1700000000 +0000\n" +
		"committer A <a@example.com> 1700000000 +0000\n" +
		"x-review-id 42\n" +
		"\n" +
		"extra header\n"
	oid := builder.Raw(plumbing.CommitObject, content)
	builder.SetBranch("master", oid)

	out, err := run(t, "show", "--raw", "--repo", dir)
	require.NoError(t, err)
	assert.Equal(t, content, out)
	assert.Equal(t, oid, plumbing.ComputeHash(plumbing.CommitObject, []byte(out)))
}

func TestShowErrors(t *testing.T) {
	dir, _ := diskRepository(t)

	_, err := run(t, "show", "--repo", dir, "no-such-branch")
	assert.Error(t, err)

	_, err = run(t, "show", "--repo", t.TempDir())
	assert.Error(t, err)

	_, err = run(t, "show", "--repo", dir, "--backend", "sqlite")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLogFileOnFailure(t *testing.T) {
	dir, _ := diskRepository(t)
	logFile := filepath.Join(t.TempDir(), "commitview.log")

	_, err := run(t, "show", "--repo", dir, "--log-level", "debug", "--log-file", logFile, "no-such-branch")
	require.Error(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "loaded configuration")
}

func TestLog(t *testing.T) {
	dir, oids := diskRepository(t)

	out, err := run(t, "log", "--repo", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		oids[2].String()[:7] + " commit c",
		oids[1].String()[:7] + " commit b",
		oids[0].String()[:7] + " commit a",
	}, strings.Split(strings.TrimSpace(out), "\n"))

	out, err = run(t, "log", "-n", "2", "--repo", dir)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestImportThenShow(t *testing.T) {
	dir, oids := diskRepository(t)
	into := filepath.Join(t.TempDir(), "store")

	out, err := run(t, "import", "--repo", dir, "--into", into)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 commits")

	out, err = run(t, "show", "--repo", into, "--backend", "pebble")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "commit "+oids[2].String()+"\n"))

	out, err = run(t, "log", "--repo", into, "--backend", "pebble")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestImportShallow(t *testing.T) {
	dir, oids := diskRepository(t)
	into := filepath.Join(t.TempDir(), "store")

	out, err := run(t, "import", "--repo", dir, "--into", into, "--depth", "1", "--branch", "tip")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 commits")
	assert.Contains(t, out, "history is shallow at 1 commits")

	out, err = run(t, "show", "--repo", into, "--backend", "pebble", "tip")
	require.NoError(t, err)
	assert.Contains(t, out, "parent "+oids[1].String())

	// log stops at the shallow boundary, also after the store was reopened
	out, err = run(t, "log", "--repo", into, "--backend", "pebble", "tip")
	require.NoError(t, err)
	assert.Equal(t, oids[2].String()[:7]+" commit c\n", out)

	_, err = run(t, "import", "--repo", dir)
	assert.Error(t, err, "--into is required")
}
