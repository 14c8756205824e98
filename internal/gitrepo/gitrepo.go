// Package gitrepo reads commit history through the git CLI.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoHistory indicates the walk reached a commit with no parent.
var ErrNoHistory = errors.New("no earlier history")

// Repo wraps a git working tree.
type Repo struct {
	root string
}

// New returns a Repo rooted at the given directory.
func New(root string) *Repo {
	return &Repo{root: root}
}

// Root returns the repository root directory.
func (r *Repo) Root() string {
	return r.root
}

// Available checks if the root directory is inside a git work tree.
func (r *Repo) Available(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = r.root
	return cmd.Run() == nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	log.Debug().Str("dir", r.root).Strs("args", args).Msg("running git command")
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// Commit holds the metadata of a single commit.
type Commit struct {
	Hash    string
	Author  string
	Date    string
	Message string
}

// ResolveCommit resolves a revision expression to a full commit hash.
func (r *Repo) ResolveCommit(ctx context.Context, rev string) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rev, err)
	}
	return strings.TrimSpace(out), nil
}

// ParentOf returns the first parent of a commit, or ErrNoHistory for a root commit.
func (r *Repo) ParentOf(ctx context.Context, commit string) (string, error) {
	out, err := r.run(ctx, "rev-list", "--parents", "-n", "1", commit)
	if err != nil {
		return "", fmt.Errorf("parent of %s: %w", short(commit), err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", ErrNoHistory
	}
	return fields[1], nil
}

// CommitInfo returns hash, author, ISO date, and full message of a commit.
func (r *Repo) CommitInfo(ctx context.Context, commit string) (Commit, error) {
	out, err := r.run(ctx, "show", "-s", "--format=%H%x00%an%x00%aI%x00%B", commit)
	if err != nil {
		return Commit{}, fmt.Errorf("commit info %s: %w", short(commit), err)
	}
	parts := strings.SplitN(out, "\x00", 4)
	if len(parts) != 4 {
		return Commit{}, fmt.Errorf("commit info %s: unexpected output", short(commit))
	}
	return Commit{
		Hash:    strings.TrimSpace(parts[0]),
		Author:  parts[1],
		Date:    parts[2],
		Message: strings.TrimSpace(parts[3]),
	}, nil
}

// BlameEntry identifies the commit that last touched a line. Line is the line
// number in the blamed commit's own revision of File.
type BlameEntry struct {
	Commit string
	File   string
	Line   int
	Text   string
}

// LastTouchingCommit blames a single line at the given revision.
func (r *Repo) LastTouchingCommit(ctx context.Context, rev, file string, line int) (BlameEntry, error) {
	lineRange := fmt.Sprintf("%d,%d", line, line)
	out, err := r.run(ctx, "blame", "-L", lineRange, "--porcelain", rev, "--", file)
	if err != nil {
		return BlameEntry{}, fmt.Errorf("blame %s:%d at %s: %w", file, line, short(rev), err)
	}
	return parseBlamePorcelain(out, file)
}

func parseBlamePorcelain(out, fallbackFile string) (BlameEntry, error) {
	entry := BlameEntry{File: fallbackFile}
	lines := strings.Split(out, "\n")
	if len(lines) == 0 {
		return BlameEntry{}, fmt.Errorf("parse blame: empty output")
	}
	header := strings.Fields(lines[0])
	if len(header) < 3 {
		return BlameEntry{}, fmt.Errorf("parse blame: malformed header %q", lines[0])
	}
	entry.Commit = header[0]
	origLine, err := strconv.Atoi(header[1])
	if err != nil {
		return BlameEntry{}, fmt.Errorf("parse blame: bad line number %q", header[1])
	}
	entry.Line = origLine
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "filename ") {
			entry.File = strings.TrimPrefix(l, "filename ")
			continue
		}
		if strings.HasPrefix(l, "\t") {
			entry.Text = strings.TrimPrefix(l, "\t")
			break
		}
	}
	return entry, nil
}

// FileDiff returns the unified diff of one file against the commit's first parent.
func (r *Repo) FileDiff(ctx context.Context, commit, file string) (string, error) {
	parent, err := r.ParentOf(ctx, commit)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			// Root commit: diff against the empty tree.
			out, derr := r.run(ctx, "show", "--format=", "--unified=3", commit, "--", file)
			if derr != nil {
				return "", derr
			}
			return out, nil
		}
		return "", err
	}
	out, err := r.run(ctx, "diff", "--unified=3", parent, commit, "--", file)
	if err != nil {
		return "", fmt.Errorf("diff %s -- %s: %w", short(commit), file, err)
	}
	return out, nil
}

// Diff returns the full unified diff of a commit against its first parent.
func (r *Repo) Diff(ctx context.Context, commit string) (string, error) {
	out, err := r.run(ctx, "show", "--format=", "--unified=3", commit)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", short(commit), err)
	}
	return out, nil
}

// FileContent returns the content of a file at a revision.
func (r *Repo) FileContent(ctx context.Context, rev, file string) ([]byte, error) {
	out, err := r.run(ctx, "show", rev+":"+file)
	if err != nil {
		return nil, fmt.Errorf("show %s:%s: %w", short(rev), file, err)
	}
	return []byte(out), nil
}

// LineAt returns the content of a single line at a revision.
func (r *Repo) LineAt(ctx context.Context, rev, file string, line int) (string, error) {
	content, err := r.FileContent(ctx, rev, file)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("line %d out of range in %s:%s", line, short(rev), file)
	}
	return lines[line-1], nil
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
