package run

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/bictrace/internal/db"
	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/tracker"
)

func TestInferVulnType(t *testing.T) {
	cases := map[string]string{
		"fix buffer overflow in parser":          "buffer overflow",
		"Fix CVE-2021-1234 overflow in copy":     "buffer overflow (CVE-2021-1234)",
		"patch use-after-free on close":          "use-after-free",
		"resolve cve-2019-0001":                  "CVE-2019-0001",
		"avoid NULL pointer deref":               "null pointer dereference",
		"harden against sql injection":           "SQL injection",
		"update changelog":                       "unknown",
		"prevent race condition in socket setup": "race condition",
	}
	for message, want := range cases {
		assert.Equal(t, want, InferVulnType(message), "message %q", message)
	}
}

func TestNewRunIDFormat(t *testing.T) {
	id := newRunID()
	assert.Regexp(t, regexp.MustCompile(`^\d{8}-\d{6}-[0-9a-f]{6}$`), id)
	assert.NotEqual(t, id, newRunID())
}

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

// fixRepo builds a repo whose last commit deletes one line of file.c.
func fixRepo(t *testing.T) (*gitrepo.Repo, []string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-b", "main")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.c"), []byte("int a;\nint b;\nint c;\n"), 0o644))
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-m", "initial import")
	c1 := gitCmd(t, dir, "rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.c"), []byte("int a;\nint b;\nint c2;\n"), 0o644))
	gitCmd(t, dir, "commit", "-am", "rework c")
	c2 := gitCmd(t, dir, "rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.c"), []byte("int a;\nint b;\n"), 0o644))
	gitCmd(t, dir, "commit", "-am", "fix CVE-2021-1234 buffer overflow")
	c3 := gitCmd(t, dir, "rev-parse", "HEAD")

	return gitrepo.New(dir), []string{c1, c2, c3}
}

func TestBuildFixContext(t *testing.T) {
	repo, commits := fixRepo(t)
	fix, err := BuildFixContext(context.Background(), repo, commits[2])
	require.NoError(t, err)
	assert.Equal(t, commits[2], fix.Hash)
	assert.Equal(t, "buffer overflow (CVE-2021-1234)", fix.VulnType)
	assert.Contains(t, fix.Diff, "-int c2;")
}

// pinClassifier marks one commit INTRODUCED and everything else MODIFIED.
type pinClassifier struct {
	bic string
}

func (p *pinClassifier) Classify(_ context.Context, req tracker.Request) (tracker.Analysis, error) {
	if req.Commit.Hash == p.bic {
		return tracker.Analysis{Verdict: tracker.VerdictIntroduced, Reasoning: "first written here", Confidence: 0.9}, nil
	}
	return tracker.Analysis{Verdict: tracker.VerdictModified, Reasoning: "reshaped", Confidence: 0.7, ShouldContinue: true}, nil
}

func TestRunnerEndToEnd(t *testing.T) {
	repo, commits := fixRepo(t)
	ctx := context.Background()

	conn, err := db.Open(filepath.Join(t.TempDir(), "bictrace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	store := db.NewStore(conn)

	output := filepath.Join(t.TempDir(), "report.json")
	runner := &Runner{
		Repo:   repo,
		Engine: tracker.New(repo, &pinClassifier{bic: commits[1]}, nil, tracker.Options{}),
		Store:  store,
		Mode:   "pure",
		Output: output,
	}

	summary, err := runner.Run(ctx, commits[2], nil)
	require.NoError(t, err)
	assert.Equal(t, commits[2], summary.FixCommit)
	require.Len(t, summary.Results, 1)
	assert.Zero(t, summary.Failed)

	result := summary.Results[0]
	require.NotNil(t, result.BICCommit)
	assert.Equal(t, commits[1], *result.BICCommit)
	assert.False(t, result.Verified)

	traces, err := store.ListTraces(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "file.c", traces[0].FilePath)
	assert.Equal(t, 3, traces[0].LineNum)

	rec, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "done", rec.Status)

	_, err = os.Stat(output)
	assert.NoError(t, err)
}

func TestRunnerSingleTarget(t *testing.T) {
	repo, commits := fixRepo(t)
	ctx := context.Background()

	conn, err := db.Open(filepath.Join(t.TempDir(), "bictrace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	runner := &Runner{
		Repo:   repo,
		Engine: tracker.New(repo, &pinClassifier{bic: commits[0]}, nil, tracker.Options{}),
		Store:  db.NewStore(conn),
		Mode:   "pure",
	}

	summary, err := runner.Run(ctx, commits[2], &gitrepo.Target{File: "file.c", Line: 1})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.NotNil(t, summary.Results[0].BICCommit)
	assert.Equal(t, commits[0], *summary.Results[0].BICCommit)
}
