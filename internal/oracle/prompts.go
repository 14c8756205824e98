package oracle

import (
	"fmt"
	"strings"

	"github.com/metalagman/bictrace/internal/tracker"
)

const classifierSystemPrompt = `You are an expert at tracing security vulnerabilities through git history.
You are given the commit that fixed a vulnerability and one commit on the backward
walk of a vulnerable line. Decide how this commit relates to the vulnerable line:

- INTRODUCED: this commit wrote the vulnerable logic for the first time.
- MODIFIED: this commit changed or moved the line but the flaw predates it.
- NEED_MORE_CONTEXT: the diff shown is not enough to decide.

Respond with a single JSON object and nothing else:
{
  "change_type": "INTRODUCED" | "MODIFIED" | "NEED_MORE_CONTEXT",
  "reasoning": "<short explanation>",
  "confidence": <number between 0 and 1>,
  "target_file": "<file to track next, optional>",
  "target_line": <line number in the parent revision to track next, optional>,
  "should_continue": <boolean, optional>
}`

const verifierSystemPrompt = `You are reviewing the conclusion of a vulnerability-introducing-commit analysis.
Given the fix commit, the tracked chain of commits, and the diff of the proposed
introducing commit, judge whether the conclusion is sound.

Respond with a single JSON object and nothing else:
{
  "verdict": "ACCEPT" | "REJECT",
  "reason": "<why>",
  "suggestion": "<where to look instead, optional>",
  "confidence": <number between 0 and 1>
}`

const reformatInstruction = "\n\nYour previous reply could not be parsed. Respond again with ONLY the JSON object, no prose, no code fences."

const (
	maxMessageChars = 200
	maxSnippetChars = 200
	maxFixDiffChars = 2000
)

func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func fixContextBlock(fix tracker.FixContext) string {
	var b strings.Builder
	b.WriteString("## Vulnerability fix\n")
	if fix.VulnType != "" {
		fmt.Fprintf(&b, "Vulnerability type: %s\n", fix.VulnType)
	}
	fmt.Fprintf(&b, "Fix commit: %s\n", fix.Hash)
	if fix.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", fix.Date)
	}
	fmt.Fprintf(&b, "Message: %s\n", truncateChars(fix.Message, maxMessageChars))
	if fix.Diff != "" {
		fmt.Fprintf(&b, "Fix diff:\n```\n%s\n```\n", truncateChars(fix.Diff, maxFixDiffChars))
	}
	return b.String()
}

func hintBlock(req tracker.Request) string {
	h := req.Hint
	if h == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Structural analysis (advisory)\n")
	fmt.Fprintf(&b, "Tool %s classified the line change as %s (confidence %.2f).\n", h.Tool, h.Kind, h.Confidence)
	if h.SourceLine > 0 {
		fmt.Fprintf(&b, "Matching line in the parent revision: %d\n", h.SourceLine)
	}
	switch {
	case h.Confidence < 0.5:
		b.WriteString("WARNING: low confidence, distrust this hint unless the diff agrees.\n")
	case h.Confidence < 0.7:
		b.WriteString("NOTE: moderate confidence, verify this hint against the diff.\n")
	}
	return b.String()
}

func feedbackBlock(fb *tracker.Feedback) string {
	if fb == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Feedback from the previous attempt\n")
	fmt.Fprintf(&b, "Commit %s was proposed as the introducing commit and REJECTED.\n", fb.RejectedCommit)
	if fb.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", fb.Reason)
	}
	if fb.Suggestion != "" {
		fmt.Fprintf(&b, "Suggestion: %s\n", fb.Suggestion)
	}
	b.WriteString("Do not conclude INTRODUCED at that commit again.\n")
	return b.String()
}

func buildClassifierPrompt(req tracker.Request) (string, string) {
	var b strings.Builder
	b.WriteString(fixContextBlock(req.Fix))
	b.WriteString("\n## Tracking point\n")
	fmt.Fprintf(&b, "File: %s\n", req.File)
	fmt.Fprintf(&b, "Line %d: %s\n", req.Line, req.LineContent)
	b.WriteString("\n## Commit under analysis\n")
	fmt.Fprintf(&b, "Commit: %s\n", req.Commit.Hash)
	fmt.Fprintf(&b, "Author: %s\n", req.Commit.Author)
	fmt.Fprintf(&b, "Date: %s\n", req.Commit.Date)
	fmt.Fprintf(&b, "Message: %s\n", truncateChars(req.Commit.Message, maxMessageChars))
	if hb := hintBlock(req); hb != "" {
		b.WriteString("\n")
		b.WriteString(hb)
	}
	b.WriteString("\n## Diff against the parent commit\n")
	if req.DiffTruncated {
		b.WriteString("(truncated to fit, the hunk around the tracked line is preserved)\n")
	}
	fmt.Fprintf(&b, "```\n%s\n```\n", req.Diff)
	if fb := feedbackBlock(req.Feedback); fb != "" {
		b.WriteString("\n")
		b.WriteString(fb)
	}
	b.WriteString("\nClassify this commit's relation to the tracked line.")
	return classifierSystemPrompt, b.String()
}

func chainSummary(chain tracker.Chain) string {
	var b strings.Builder
	for i, step := range chain {
		fmt.Fprintf(&b, "%d. [%s] %s %s %q (%s:%d)\n",
			i+1, step.ChangeType, shortHash(step.CommitHash), step.CommitDate,
			truncateChars(step.CommitMessage, maxMessageChars), step.FilePath, step.LineNum)
		if step.CodeSnippet != "" {
			fmt.Fprintf(&b, "   line: %s\n", truncateChars(step.CodeSnippet, maxSnippetChars))
		}
		if step.Reasoning != "" {
			fmt.Fprintf(&b, "   reasoning: %s\n", step.Reasoning)
		}
	}
	return b.String()
}

func buildVerifierPrompt(fix tracker.FixContext, chain tracker.Chain, bicDiff string) (string, string) {
	var b strings.Builder
	b.WriteString(fixContextBlock(fix))
	b.WriteString("\n## Tracked chain (fix parent backward)\n")
	b.WriteString(chainSummary(chain))
	if len(chain) > 0 {
		fmt.Fprintf(&b, "\nProposed introducing commit: %s\n", chain[len(chain)-1].CommitHash)
	}
	if bicDiff != "" {
		fmt.Fprintf(&b, "\n## Diff of the proposed introducing commit\n```\n%s\n```\n", bicDiff)
	}
	b.WriteString("\nJudge whether the proposed commit really introduced the vulnerability.")
	return verifierSystemPrompt, b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
