// Package tracker walks a vulnerable line backward through history until the
// commit that introduced it is found and verified.
package tracker

import (
	"context"

	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/hints"
)

// Verdict is the classifier's call on how a commit relates to the tracked line.
type Verdict string

// Verdicts.
const (
	VerdictIntroduced      Verdict = "INTRODUCED"
	VerdictModified        Verdict = "MODIFIED"
	VerdictNeedMoreContext Verdict = "NEED_MORE_CONTEXT"
)

// FixContext carries the fix commit details embedded in every prompt.
type FixContext struct {
	Hash     string
	Message  string
	Author   string
	Date     string
	Diff     string
	VulnType string
}

// Feedback carries the verifier's rejection into the next walk attempt.
type Feedback struct {
	RejectedCommit string
	Reason         string
	Suggestion     string
}

// Request is one classification task for a single commit on the walk.
type Request struct {
	Fix           FixContext
	Commit        gitrepo.Commit
	File          string
	Line          int
	LineContent   string
	Diff          string
	DiffTruncated bool
	ContextLevel  int
	Hint          *hints.Hint
	Feedback      *Feedback
}

// Analysis is the parsed classifier verdict.
type Analysis struct {
	Verdict        Verdict
	Reasoning      string
	Confidence     float64
	TargetFile     string
	TargetLine     int
	ShouldContinue bool
}

// Verification is the parsed verifier verdict over a completed chain.
type Verification struct {
	Accepted   bool
	Reason     string
	Suggestion string
	Confidence float64
}

// Step is one commit visited on the walk. Author and CodeSnippet stay out of
// the persisted JSON.
type Step struct {
	CommitHash    string  `json:"commit_hash"`
	CommitDate    string  `json:"commit_date"`
	CommitMessage string  `json:"commit_message"`
	FilePath      string  `json:"file_path"`
	LineNum       int     `json:"line_num"`
	ChangeType    string  `json:"change_type"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`

	Author      string `json:"-"`
	CodeSnippet string `json:"-"`
}

// Chain is the ordered walk from the fix parent back in time.
type Chain []Step

// Result is the outcome for one tracked line.
type Result struct {
	FixCommit     string  `json:"fix_commit"`
	BICCommit     *string `json:"bic_commit"`
	Verified      bool    `json:"verified"`
	Iterations    int     `json:"iterations"`
	TrackingChain Chain   `json:"tracking_chain"`
}

// History is the subset of repository access the engine depends on.
type History interface {
	LastTouchingCommit(ctx context.Context, rev, file string, line int) (gitrepo.BlameEntry, error)
	ParentOf(ctx context.Context, commit string) (string, error)
	CommitInfo(ctx context.Context, commit string) (gitrepo.Commit, error)
	FileDiff(ctx context.Context, commit, file string) (string, error)
	FileContent(ctx context.Context, rev, file string) ([]byte, error)
}

// Classifier produces a verdict for one commit on the walk.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Analysis, error)
}

// Verifier judges a completed chain ending in a candidate commit.
type Verifier interface {
	Verify(ctx context.Context, fix FixContext, chain Chain, bicDiff string) (Verification, error)
}
