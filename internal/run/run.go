// Package run orchestrates a full trace run over the impacted lines of a fix
// commit.
package run

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/bictrace/internal/db"
	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/report"
	"github.com/metalagman/bictrace/internal/tracker"
)

// DefaultExtensions are the file types traced when the fix touches them.
var DefaultExtensions = []string{
	".c", ".cc", ".cpp", ".cxx", ".h", ".hpp",
	".go", ".java", ".js", ".py", ".rb", ".php", ".rs",
}

// Runner wires the repository, the engine, and persistence for one run.
type Runner struct {
	Repo       *gitrepo.Repo
	Engine     *tracker.Engine
	Store      *db.Store
	Mode       string
	Output     string
	Extensions []string
}

// Summary is the outcome of a run.
type Summary struct {
	RunID     string
	FixCommit string
	Results   []tracker.Result
	Failed    int
}

// Run traces every impacted line of the fix commit. When only is non-nil,
// just that file and line are traced.
func (r *Runner) Run(ctx context.Context, fixRev string, only *gitrepo.Target) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: newRunID()}

	fixCommit, err := r.Repo.ResolveCommit(ctx, fixRev)
	if err != nil {
		return summary, err
	}
	summary.FixCommit = fixCommit

	fix, err := BuildFixContext(ctx, r.Repo, fixCommit)
	if err != nil {
		return summary, err
	}
	log.Info().
		Str("run_id", summary.RunID).
		Str("fix_commit", short(fixCommit)).
		Str("vuln_type", fix.VulnType).
		Str("mode", r.Mode).
		Msg("run started")
	defer func() {
		log.Info().Str("run_id", summary.RunID).Dur("duration", time.Since(start)).Msg("run finished")
	}()

	if err := r.Store.CreateRun(ctx, summary.RunID, fixCommit, r.Mode); err != nil {
		return summary, err
	}

	targets, err := r.targets(ctx, fixCommit, only)
	if err != nil {
		_ = r.Store.FinishRun(ctx, summary.RunID, "failed")
		return summary, err
	}
	if len(targets) == 0 {
		log.Warn().Str("fix_commit", short(fixCommit)).Msg("fix commit deletes no tracked lines")
	}

	for _, target := range targets {
		result, err := r.traceOne(ctx, fix, target)
		if err != nil {
			// One line failing must not abort its siblings.
			log.Error().Err(err).Str("file", target.File).Int("line", target.Line).Msg("trace failed")
			summary.Failed++
			continue
		}
		summary.Results = append(summary.Results, result)
		if err := r.persist(ctx, summary.RunID, target, result); err != nil {
			return summary, err
		}
	}

	if r.Output != "" {
		if err := report.WriteJSON(r.Output, summary.Results); err != nil {
			return summary, err
		}
		log.Info().Str("path", r.Output).Msg("report written")
	}

	status := "done"
	if summary.Failed > 0 && len(summary.Results) == 0 {
		status = "failed"
	}
	if err := r.Store.FinishRun(ctx, summary.RunID, status); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) targets(ctx context.Context, fixCommit string, only *gitrepo.Target) ([]gitrepo.Target, error) {
	if only != nil {
		return []gitrepo.Target{*only}, nil
	}
	exts := r.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return r.Repo.ImpactedLines(ctx, fixCommit, exts)
}

func (r *Runner) traceOne(ctx context.Context, fix tracker.FixContext, target gitrepo.Target) (tracker.Result, error) {
	log.Debug().Str("file", target.File).Int("line", target.Line).Msg("tracing line")
	return r.Engine.Trace(ctx, fix, target.File, target.Line)
}

func (r *Runner) persist(ctx context.Context, runID string, target gitrepo.Target, result tracker.Result) error {
	chainJSON, err := json.Marshal(result.TrackingChain)
	if err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	return r.Store.InsertTrace(ctx, db.TraceRecord{
		RunID:      runID,
		FilePath:   target.File,
		LineNum:    target.Line,
		FixCommit:  result.FixCommit,
		BICCommit:  result.BICCommit,
		Verified:   result.Verified,
		Iterations: result.Iterations,
		ChainJSON:  string(chainJSON),
	})
}

func newRunID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + randomHex(3)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "000000"[:n*2]
	}
	return hex.EncodeToString(buf)
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
