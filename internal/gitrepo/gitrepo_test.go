package gitrepo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// newTestRepo builds three commits on file.c: create, modify line 3, delete line 3.
func newTestRepo(t *testing.T) (*Repo, []string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-b", "main")

	writeFile(t, dir, "file.c", "int a;\nint b;\nint c;\nint d;\nint e;\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "initial import")
	c1 := gitCmd(t, dir, "rev-parse", "HEAD")

	writeFile(t, dir, "file.c", "int a;\nint b;\nint c2;\nint d;\nint e;\n")
	gitCmd(t, dir, "commit", "-am", "rework c")
	c2 := gitCmd(t, dir, "rev-parse", "HEAD")

	writeFile(t, dir, "file.c", "int a;\nint b;\nint d;\nint e;\n")
	gitCmd(t, dir, "commit", "-am", "fix CVE-2021-1234 overflow")
	c3 := gitCmd(t, dir, "rev-parse", "HEAD")

	return New(dir), []string{c1, c2, c3}
}

func TestAvailable(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.True(t, repo.Available(context.Background()))
	assert.False(t, New(t.TempDir()).Available(context.Background()))
}

func TestParentOf(t *testing.T) {
	repo, commits := newTestRepo(t)
	ctx := context.Background()

	parent, err := repo.ParentOf(ctx, commits[2])
	require.NoError(t, err)
	assert.Equal(t, commits[1], parent)

	_, err = repo.ParentOf(ctx, commits[0])
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestCommitInfo(t *testing.T) {
	repo, commits := newTestRepo(t)
	info, err := repo.CommitInfo(context.Background(), commits[2])
	require.NoError(t, err)
	assert.Equal(t, commits[2], info.Hash)
	assert.Equal(t, "test", info.Author)
	assert.Contains(t, info.Message, "CVE-2021-1234")
	assert.NotEmpty(t, info.Date)
}

func TestLastTouchingCommit(t *testing.T) {
	repo, commits := newTestRepo(t)
	ctx := context.Background()

	// Line 3 at the fix parent was last touched by the second commit.
	entry, err := repo.LastTouchingCommit(ctx, commits[2]+"^", "file.c", 3)
	require.NoError(t, err)
	assert.Equal(t, commits[1], entry.Commit)
	assert.Equal(t, 3, entry.Line)
	assert.Equal(t, "file.c", entry.File)
	assert.Equal(t, "int c2;", entry.Text)

	// Line 1 was never touched after the initial commit.
	entry, err = repo.LastTouchingCommit(ctx, commits[2]+"^", "file.c", 1)
	require.NoError(t, err)
	assert.Equal(t, commits[0], entry.Commit)
	assert.Equal(t, 1, entry.Line)
}

func TestFileDiffAndContent(t *testing.T) {
	repo, commits := newTestRepo(t)
	ctx := context.Background()

	d, err := repo.FileDiff(ctx, commits[1], "file.c")
	require.NoError(t, err)
	assert.Contains(t, d, "-int c;")
	assert.Contains(t, d, "+int c2;")

	content, err := repo.FileContent(ctx, commits[0], "file.c")
	require.NoError(t, err)
	assert.Contains(t, string(content), "int c;")

	line, err := repo.LineAt(ctx, commits[1], "file.c", 3)
	require.NoError(t, err)
	assert.Equal(t, "int c2;", line)
}

func TestImpactedLines(t *testing.T) {
	repo, commits := newTestRepo(t)
	targets, err := repo.ImpactedLines(context.Background(), commits[2], []string{".c"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, Target{File: "file.c", Line: 3}, targets[0])
}

func TestImpactedLinesExtensionFilter(t *testing.T) {
	repo, commits := newTestRepo(t)
	targets, err := repo.ImpactedLines(context.Background(), commits[2], []string{".java"})
	require.NoError(t, err)
	assert.Empty(t, targets)
}
