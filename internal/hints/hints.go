// Package hints provides optional structural change classification for a
// single source line between two revisions of a file.
package hints

import (
	"context"
	"path/filepath"
	"strings"
)

// Kind classifies how a line changed between the pre and post revision.
type Kind string

// Hint kinds.
const (
	KindInsert    Kind = "INSERT"
	KindDelete    Kind = "DELETE"
	KindUpdate    Kind = "UPDATE"
	KindMove      Kind = "MOVE"
	KindUnchanged Kind = "UNCHANGED"
	KindUnknown   Kind = "UNKNOWN"
)

// Hint is an advisory structural verdict. SourceLine is the matching line in
// the pre revision, zero when there is none.
type Hint struct {
	Kind       Kind
	SourceLine int
	Confidence float64
	Tool       string
}

// Provider classifies a line change between two revisions of one file.
type Provider interface {
	Available() bool
	Classify(ctx context.Context, pre, post []byte, line int) (Hint, error)
}

// ForFile selects a provider by file extension, or nil when the file type is
// not supported.
func ForFile(path string) Provider {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return newTreeSitterProvider(langGo)
	case ".java":
		return newTreeSitterProvider(langJava)
	case ".js":
		return newTreeSitterProvider(langJavaScript)
	case ".c", ".h", ".cc", ".cpp", ".hpp", ".cxx":
		return &textProvider{}
	default:
		return nil
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// similarity is a token-bag ratio in [0,1], in the spirit of difflib's
// quick_ratio.
func similarity(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ta))
	for _, t := range ta {
		counts[t]++
	}
	common := 0
	for _, t := range tb {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}
