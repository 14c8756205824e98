// Package diffutil implements line remapping and size-bounded truncation over
// unified diffs.
package diffutil

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Context levels widen the amount of diff text handed to the oracle.
const (
	LevelNormal   = 1
	LevelExtended = 2
	LevelFull     = 3
)

// Budget returns the character budget for a context level.
func Budget(level int) int {
	switch {
	case level <= LevelNormal:
		return 3000
	case level == LevelExtended:
		return 8000
	default:
		return 15000
	}
}

const truncationNotice = "\n... [diff truncated, hunk around the tracked line preserved]"

func stripPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

func fileMatch(fd *diff.FileDiff, file string) bool {
	return stripPrefix(fd.OrigName) == file || stripPrefix(fd.NewName) == file
}

// RemapToParent maps a line number in the commit's revision of file to the
// corresponding line in the parent revision, using the commit's own diff.
// The second return is false when the line was added by the commit and has
// no parent counterpart.
func RemapToParent(rawDiff, file string, line int) (int, bool, error) {
	files, err := diff.NewMultiFileDiffReader(strings.NewReader(rawDiff)).ReadAllFiles()
	if err != nil {
		return 0, false, fmt.Errorf("parse diff: %w", err)
	}
	for _, fd := range files {
		if !fileMatch(fd, file) {
			continue
		}
		return remapInFile(fd, line)
	}
	// File untouched by the commit: the line number carries over.
	return line, true, nil
}

func remapInFile(fd *diff.FileDiff, line int) (int, bool, error) {
	delta := 0
	for _, h := range fd.Hunks {
		newStart := int(h.NewStartLine)
		newEnd := newStart + int(h.NewLines)
		if line < newStart {
			break
		}
		if line >= newEnd {
			delta += int(h.OrigLines) - int(h.NewLines)
			continue
		}
		origLine := int(h.OrigStartLine)
		newLine := newStart
		for _, bodyLine := range strings.Split(string(h.Body), "\n") {
			if bodyLine == "" {
				continue
			}
			switch bodyLine[0] {
			case '+':
				if newLine == line {
					return 0, false, nil
				}
				newLine++
			case '-':
				origLine++
			default:
				if newLine == line {
					return origLine, true, nil
				}
				origLine++
				newLine++
			}
		}
		return 0, false, fmt.Errorf("line %d not found in hunk body", line)
	}
	return line + delta, true, nil
}

// Truncate bounds a diff to the character budget of the given context level,
// always preserving the hunk of file that covers line. The second return
// reports whether anything was dropped.
func Truncate(rawDiff, file string, line, level int) (string, bool) {
	budget := Budget(level)
	if len(rawDiff) <= budget {
		return rawDiff, false
	}

	files, err := diff.NewMultiFileDiffReader(strings.NewReader(rawDiff)).ReadAllFiles()
	if err != nil {
		// Unparseable input: keep the head within budget.
		return rawDiff[:budget] + truncationNotice, true
	}

	var b strings.Builder
	remaining := budget
	for _, fd := range files {
		if !fileMatch(fd, file) {
			continue
		}
		kept := keepHunks(fd, line, remaining)
		if out, perr := diff.PrintFileDiff(kept); perr == nil {
			b.Write(out)
			remaining -= len(out)
		}
	}
	for _, fd := range files {
		if fileMatch(fd, file) {
			continue
		}
		out, perr := diff.PrintFileDiff(fd)
		if perr != nil || len(out) > remaining {
			continue
		}
		b.Write(out)
		remaining -= len(out)
	}
	b.WriteString(truncationNotice)
	return b.String(), true
}

// keepHunks keeps the hunk covering line plus as many in-order hunks as fit
// the remaining budget.
func keepHunks(fd *diff.FileDiff, line, budget int) *diff.FileDiff {
	target := -1
	for i, h := range fd.Hunks {
		newStart, newEnd := int(h.NewStartLine), int(h.NewStartLine)+int(h.NewLines)
		origStart, origEnd := int(h.OrigStartLine), int(h.OrigStartLine)+int(h.OrigLines)
		if (line >= newStart && line < newEnd) || (line >= origStart && line < origEnd) {
			target = i
			break
		}
	}

	kept := &diff.FileDiff{
		OrigName: fd.OrigName, OrigTime: fd.OrigTime,
		NewName: fd.NewName, NewTime: fd.NewTime,
		Extended: fd.Extended,
	}
	used := 0
	if target >= 0 {
		used = len(fd.Hunks[target].Body)
	}
	for i, h := range fd.Hunks {
		if i == target {
			kept.Hunks = append(kept.Hunks, h)
			continue
		}
		if used+len(h.Body) > budget {
			continue
		}
		used += len(h.Body)
		kept.Hunks = append(kept.Hunks, h)
	}
	return kept
}
