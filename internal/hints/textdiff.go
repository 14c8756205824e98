package hints

import (
	"context"
	"fmt"
	"strings"
)

const minUpdateSimilarity = 0.6

// textProvider matches a line across revisions by whitespace-normalized text.
// It covers the C family, where no grammar is wired in.
type textProvider struct{}

func (p *textProvider) Available() bool { return true }

func (p *textProvider) Classify(_ context.Context, pre, post []byte, line int) (Hint, error) {
	postLines := strings.Split(string(post), "\n")
	if line < 1 || line > len(postLines) {
		return Hint{}, fmt.Errorf("line %d out of range (%d lines)", line, len(postLines))
	}
	target := normalize(postLines[line-1])
	if target == "" {
		return Hint{Kind: KindUnknown, Confidence: 0.3, Tool: "textdiff"}, nil
	}

	preLines := strings.Split(string(pre), "\n")
	bestRatio := 0.0
	bestLine := 0
	for i, l := range preLines {
		n := normalize(l)
		if n == target {
			if i+1 == line {
				return Hint{Kind: KindUnchanged, SourceLine: i + 1, Confidence: 0.95, Tool: "textdiff"}, nil
			}
			return Hint{Kind: KindMove, SourceLine: i + 1, Confidence: 0.85, Tool: "textdiff"}, nil
		}
		if r := similarity(n, target); r > bestRatio {
			bestRatio = r
			bestLine = i + 1
		}
	}
	if bestRatio >= minUpdateSimilarity {
		return Hint{Kind: KindUpdate, SourceLine: bestLine, Confidence: bestRatio, Tool: "textdiff"}, nil
	}
	return Hint{Kind: KindInsert, Confidence: 0.8, Tool: "textdiff"}, nil
}
