// Package report renders trace results as JSON and terminal markdown.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/metalagman/bictrace/internal/tracker"
)

// WriteJSON writes the result array to path. An empty result set still
// produces a valid empty array.
func WriteJSON(path string, results []tracker.Result) error {
	if results == nil {
		results = []tracker.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Markdown builds a human-readable summary of the results.
func Markdown(runID, fixCommit string, results []tracker.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trace run %s\n\n", runID)
	fmt.Fprintf(&b, "Fix commit: `%s`\n\n", fixCommit)

	if len(results) == 0 {
		b.WriteString("No lines were traced.\n")
		return b.String()
	}

	verified := 0
	for _, r := range results {
		if r.Verified {
			verified++
		}
	}
	fmt.Fprintf(&b, "%d line(s) traced, %d verified.\n\n", len(results), verified)

	for i, r := range results {
		fmt.Fprintf(&b, "## Line %d\n\n", i+1)
		if len(r.TrackingChain) > 0 {
			first := r.TrackingChain[0]
			fmt.Fprintf(&b, "Tracked from `%s:%d`.\n\n", first.FilePath, first.LineNum)
		}
		switch {
		case r.BICCommit != nil && r.Verified:
			fmt.Fprintf(&b, "Introducing commit: `%s` (verified, %d iteration(s))\n\n", *r.BICCommit, r.Iterations)
		case r.BICCommit != nil:
			fmt.Fprintf(&b, "Introducing commit: `%s` (unverified, %d iteration(s))\n\n", *r.BICCommit, r.Iterations)
		default:
			fmt.Fprintf(&b, "No introducing commit found within budget (%d iteration(s)).\n\n", r.Iterations)
		}
		if len(r.TrackingChain) > 0 {
			b.WriteString("| # | Commit | Type | Confidence | Location |\n")
			b.WriteString("|---|--------|------|------------|----------|\n")
			for j, step := range r.TrackingChain {
				fmt.Fprintf(&b, "| %d | `%s` | %s | %.2f | %s:%d |\n",
					j+1, shortHash(step.CommitHash), step.ChangeType, step.Confidence, step.FilePath, step.LineNum)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Render renders markdown for the terminal, falling back to the raw text when
// styling fails.
func Render(markdown string) string {
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		return markdown
	}
	return out
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
