package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/bictrace/internal/diffutil"
	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/hints"
)

// Options bound the walk and select the mode.
type Options struct {
	MaxDepth       int
	MaxIterations  int
	MaxEscalations int
	ForcedVerdict  Verdict
	Hybrid         bool
}

// Engine drives the backward walk and the verification loop for one line.
type Engine struct {
	history    History
	classifier Classifier
	verifier   Verifier
	opts       Options
}

// New builds an engine. verifier may be nil, in which case chains are
// returned unverified after a single walk.
func New(history History, classifier Classifier, verifier Verifier, opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 30
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	if opts.MaxEscalations <= 0 {
		opts.MaxEscalations = 3
	}
	if opts.ForcedVerdict == "" {
		opts.ForcedVerdict = VerdictModified
	}
	return &Engine{history: history, classifier: classifier, verifier: verifier, opts: opts}
}

// Trace walks one line of the fix parent revision back to its introduction.
func (e *Engine) Trace(ctx context.Context, fix FixContext, file string, line int) (Result, error) {
	result := Result{FixCommit: fix.Hash}
	skip := map[string]bool{}
	var feedback *Feedback

	for iteration := 1; iteration <= e.opts.MaxIterations; iteration++ {
		result.Iterations = iteration
		chain, bic, err := e.walk(ctx, fix, file, line, feedback, skip)
		if err != nil {
			return result, err
		}
		result.TrackingChain = chain
		result.BICCommit = nil

		if bic == "" {
			// Exhausted history or depth: nothing to verify, nothing to retry.
			return result, nil
		}
		result.BICCommit = &bic

		if e.verifier == nil {
			return result, nil
		}
		verification, err := e.verify(ctx, fix, chain, bic)
		if err != nil {
			log.Warn().Err(err).Str("bic", short(bic)).Msg("verification unavailable, returning unverified chain")
			return result, nil
		}
		if verification.Accepted {
			result.Verified = true
			return result, nil
		}
		log.Info().Str("bic", short(bic)).Str("reason", verification.Reason).Msg("candidate rejected, retrying walk")
		skip[bic] = true
		feedback = &Feedback{
			RejectedCommit: bic,
			Reason:         verification.Reason,
			Suggestion:     verification.Suggestion,
		}
	}
	return result, nil
}

// walk follows the line from the fix parent backward. It returns the visited
// chain and the introducing commit, empty when the walk ended unresolved.
func (e *Engine) walk(ctx context.Context, fix FixContext, file string, line int, feedback *Feedback, skip map[string]bool) (Chain, string, error) {
	var chain Chain
	rev := fix.Hash + "^"
	curFile, curLine := file, line

	for depth := 0; depth < e.opts.MaxDepth; depth++ {
		entry, err := e.history.LastTouchingCommit(ctx, rev, curFile, curLine)
		if err != nil {
			if depth == 0 {
				return chain, "", fmt.Errorf("walk at %s %s:%d: %w", rev, curFile, curLine, err)
			}
			// The line no longer exists at this revision: the trail ends here.
			log.Debug().Err(err).Str("rev", short(rev)).Msg("blame failed, ending walk unresolved")
			return chain, "", nil
		}
		info, err := e.history.CommitInfo(ctx, entry.Commit)
		if err != nil {
			return chain, "", err
		}
		rawDiff, err := e.history.FileDiff(ctx, entry.Commit, entry.File)
		if err != nil {
			return chain, "", err
		}

		analysis, hint := e.classify(ctx, fix, info, entry, rawDiff, feedback)
		if analysis.Verdict == VerdictIntroduced && skip[entry.Commit] {
			log.Debug().Str("commit", short(entry.Commit)).Msg("commit previously rejected, walking past it")
			analysis.Verdict = VerdictModified
		}

		chain = append(chain, Step{
			CommitHash:    info.Hash,
			CommitDate:    info.Date,
			CommitMessage: info.Message,
			FilePath:      entry.File,
			LineNum:       entry.Line,
			ChangeType:    string(analysis.Verdict),
			Reasoning:     analysis.Reasoning,
			Confidence:    analysis.Confidence,
			Author:        info.Author,
			CodeSnippet:   entry.Text,
		})

		if analysis.Verdict == VerdictIntroduced {
			return chain, entry.Commit, nil
		}

		if _, err := e.history.ParentOf(ctx, entry.Commit); err != nil {
			if errors.Is(err, gitrepo.ErrNoHistory) {
				// Root commit reached without an INTRODUCED verdict.
				return chain, "", nil
			}
			return chain, "", err
		}
		rev = entry.Commit + "^"
		curFile = entry.File
		curLine = e.nextLine(analysis, hint, entry, rawDiff)
	}
	log.Debug().Int("max_depth", e.opts.MaxDepth).Msg("depth budget exhausted")
	return chain, "", nil
}

// classify runs the classifier with context escalation. Hard classifier
// failure degrades the step to MODIFIED with zero confidence so the walk
// survives.
func (e *Engine) classify(ctx context.Context, fix FixContext, info gitrepo.Commit, entry gitrepo.BlameEntry, rawDiff string, feedback *Feedback) (Analysis, *hints.Hint) {
	level := diffutil.LevelNormal
	escalations := 0
	hint := e.hint(ctx, entry)

	for {
		diffText, truncated := diffutil.Truncate(rawDiff, entry.File, entry.Line, level)
		analysis, err := e.classifier.Classify(ctx, Request{
			Fix:           fix,
			Commit:        info,
			File:          entry.File,
			Line:          entry.Line,
			LineContent:   entry.Text,
			Diff:          diffText,
			DiffTruncated: truncated,
			ContextLevel:  level,
			Hint:          hint,
			Feedback:      feedback,
		})
		if err != nil {
			log.Warn().Err(err).Str("commit", short(entry.Commit)).Msg("classifier failed, degrading step to MODIFIED")
			return Analysis{Verdict: VerdictModified, Reasoning: "classifier unavailable: " + err.Error(), ShouldContinue: true}, hint
		}
		if analysis.Verdict != VerdictNeedMoreContext {
			return analysis, hint
		}
		escalations++
		if escalations > e.opts.MaxEscalations || level >= diffutil.LevelFull {
			log.Debug().Str("commit", short(entry.Commit)).Msg("context budget exhausted, forcing verdict")
			analysis.Verdict = e.opts.ForcedVerdict
			analysis.ShouldContinue = analysis.Verdict != VerdictIntroduced
			return analysis, hint
		}
		level++
	}
}

// hint runs the structural provider for the file, when the mode and file type
// allow it. Any failure degrades to no hint.
func (e *Engine) hint(ctx context.Context, entry gitrepo.BlameEntry) *hints.Hint {
	if !e.opts.Hybrid {
		return nil
	}
	provider := hints.ForFile(entry.File)
	if provider == nil || !provider.Available() {
		return nil
	}
	post, err := e.history.FileContent(ctx, entry.Commit, entry.File)
	if err != nil {
		return nil
	}
	// The file may not exist in the parent when this commit added it.
	pre, err := e.history.FileContent(ctx, entry.Commit+"^", entry.File)
	if err != nil {
		pre = nil
	}
	h, err := provider.Classify(ctx, pre, post, entry.Line)
	if err != nil {
		log.Debug().Err(err).Str("file", entry.File).Msg("hint provider failed, continuing without hint")
		return nil
	}
	return &h
}

// nextLine picks the line to track in the parent revision: the classifier's
// target first, then the hint's matched line, then a remap through the
// commit's own diff.
func (e *Engine) nextLine(analysis Analysis, hint *hints.Hint, entry gitrepo.BlameEntry, rawDiff string) int {
	if analysis.TargetLine > 0 {
		return analysis.TargetLine
	}
	if hint != nil && hint.SourceLine > 0 {
		return hint.SourceLine
	}
	if remapped, ok, err := diffutil.RemapToParent(rawDiff, entry.File, entry.Line); err == nil && ok {
		return remapped
	}
	return entry.Line
}

// verify fetches the candidate diff and runs the verifier.
func (e *Engine) verify(ctx context.Context, fix FixContext, chain Chain, bic string) (Verification, error) {
	last := chain[len(chain)-1]
	bicDiff := ""
	if raw, err := e.history.FileDiff(ctx, bic, last.FilePath); err == nil {
		bicDiff, _ = diffutil.Truncate(raw, last.FilePath, last.LineNum, diffutil.LevelExtended)
	}
	return e.verifier.Verify(ctx, fix, chain, bicDiff)
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
