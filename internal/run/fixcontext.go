package run

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/tracker"
)

const maxFixDiffChars = 2000

var cveRe = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)

// vulnKeywords maps fix-message phrases to a vulnerability type, first match
// wins.
var vulnKeywords = []struct {
	phrase string
	kind   string
}{
	{"use after free", "use-after-free"},
	{"use-after-free", "use-after-free"},
	{"double free", "double free"},
	{"integer overflow", "integer overflow"},
	{"buffer overflow", "buffer overflow"},
	{"stack overflow", "buffer overflow"},
	{"heap overflow", "buffer overflow"},
	{"overflow", "buffer overflow"},
	{"out of bounds", "out-of-bounds access"},
	{"out-of-bounds", "out-of-bounds access"},
	{"oob", "out-of-bounds access"},
	{"null pointer", "null pointer dereference"},
	{"null deref", "null pointer dereference"},
	{"sql injection", "SQL injection"},
	{"injection", "injection"},
	{"xss", "cross-site scripting"},
	{"cross-site scripting", "cross-site scripting"},
	{"race condition", "race condition"},
	{"race", "race condition"},
	{"memory leak", "memory leak"},
	{"info leak", "information leak"},
	{"information leak", "information leak"},
	{"denial of service", "denial of service"},
	{"dos", "denial of service"},
}

// InferVulnType guesses the vulnerability class from the fix commit message.
func InferVulnType(message string) string {
	lower := strings.ToLower(message)
	kind := ""
	for _, kw := range vulnKeywords {
		if strings.Contains(lower, kw.phrase) {
			kind = kw.kind
			break
		}
	}
	cve := cveRe.FindString(message)
	switch {
	case kind != "" && cve != "":
		return fmt.Sprintf("%s (%s)", kind, strings.ToUpper(cve))
	case kind != "":
		return kind
	case cve != "":
		return strings.ToUpper(cve)
	default:
		return "unknown"
	}
}

// BuildFixContext gathers the fix commit details embedded in every prompt.
func BuildFixContext(ctx context.Context, repo *gitrepo.Repo, fixCommit string) (tracker.FixContext, error) {
	info, err := repo.CommitInfo(ctx, fixCommit)
	if err != nil {
		return tracker.FixContext{}, fmt.Errorf("fix context: %w", err)
	}
	diff, err := repo.Diff(ctx, fixCommit)
	if err != nil {
		return tracker.FixContext{}, fmt.Errorf("fix context: %w", err)
	}
	if len(diff) > maxFixDiffChars {
		diff = diff[:maxFixDiffChars] + "..."
	}
	return tracker.FixContext{
		Hash:     info.Hash,
		Message:  info.Message,
		Author:   info.Author,
		Date:     info.Date,
		Diff:     diff,
		VulnType: InferVulnType(info.Message),
	}, nil
}
