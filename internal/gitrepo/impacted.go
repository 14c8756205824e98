package gitrepo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Target is one deleted line of a fix commit, addressed in the fix parent revision.
type Target struct {
	File string
	Line int
}

// ImpactedLines parses the fix commit diff and returns the deleted lines per
// file, with line numbers valid in the fix commit's first parent. Files are
// filtered by extension when exts is non-empty.
func (r *Repo) ImpactedLines(ctx context.Context, fixCommit string, exts []string) ([]Target, error) {
	raw, err := r.Diff(ctx, fixCommit)
	if err != nil {
		return nil, err
	}
	targets, err := deletedLines(raw, exts)
	if err != nil {
		return nil, fmt.Errorf("impacted lines of %s: %w", short(fixCommit), err)
	}
	return targets, nil
}

func deletedLines(rawDiff string, exts []string) ([]Target, error) {
	files, err := diff.NewMultiFileDiffReader(strings.NewReader(rawDiff)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	var out []Target
	for _, fd := range files {
		name := stripDiffPrefix(fd.OrigName)
		if name == "" || fd.OrigName == "/dev/null" {
			continue
		}
		if !extMatch(name, exts) {
			continue
		}
		for _, h := range fd.Hunks {
			origLine := int(h.OrigStartLine)
			for _, bodyLine := range strings.Split(string(h.Body), "\n") {
				if bodyLine == "" {
					continue
				}
				switch bodyLine[0] {
				case '-':
					out = append(out, Target{File: name, Line: origLine})
					origLine++
				case '+':
					// added lines exist only in the fix revision
				default:
					origLine++
				}
			}
		}
	}
	return out, nil
}

func stripDiffPrefix(name string) string {
	if name == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

func extMatch(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
