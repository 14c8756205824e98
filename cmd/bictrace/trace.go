package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/metalagman/bictrace/internal/config"
	"github.com/metalagman/bictrace/internal/db"
	"github.com/metalagman/bictrace/internal/gitrepo"
	"github.com/metalagman/bictrace/internal/oracle"
	"github.com/metalagman/bictrace/internal/report"
	"github.com/metalagman/bictrace/internal/respcache"
	"github.com/metalagman/bictrace/internal/run"
	"github.com/metalagman/bictrace/internal/tracker"
)

func traceCmd() *cobra.Command {
	var file string
	var line int
	var mode string
	var output string
	cmd := &cobra.Command{
		Use:          "trace <fix-commit>",
		Short:        "Trace the fix commit's deleted lines back to their introducing commits",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Mode = mode
			}
			if cfg.Mode != config.ModeHybrid && cfg.Mode != config.ModePure {
				return fmt.Errorf("invalid mode %q", cfg.Mode)
			}
			if output != "" {
				cfg.Output = output
			}
			if file == "" && line > 0 || file != "" && line <= 0 {
				return fmt.Errorf("--file and --line must be used together")
			}

			repo := gitrepo.New(repoRoot(workDir, cfg))
			if !repo.Available(cmd.Context()) {
				return fmt.Errorf("not a git repository: %s", repo.Root())
			}

			storeDB, closeFn, err := openDB(workDir, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			runner, err := buildRunner(cmd.Context(), cfg, repo, storeDB)
			if err != nil {
				return err
			}

			var only *gitrepo.Target
			if file != "" {
				only = &gitrepo.Target{File: file, Line: line}
			}
			summary, err := runner.Run(cmd.Context(), args[0], only)
			if err != nil {
				return err
			}
			md := report.Markdown(summary.RunID, summary.FixCommit, summary.Results)
			fmt.Print(report.Render(md))
			if summary.Failed > 0 {
				return fmt.Errorf("%d line(s) failed to trace", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "trace only this file (requires --line)")
	cmd.Flags().IntVar(&line, "line", 0, "trace only this line of --file, in the fix parent revision")
	cmd.Flags().StringVar(&mode, "mode", "", "hybrid or pure, overriding the config")
	cmd.Flags().StringVar(&output, "output", "", "write the JSON report to this path")
	return cmd
}

func buildRunner(ctx context.Context, cfg config.Config, repo *gitrepo.Repo, storeDB *sql.DB) (*run.Runner, error) {
	cache := respcache.New(storeDB, cfg.Cache.Disabled)
	timeout := time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second

	large, err := newTransport(ctx, cfg, cfg.Oracle.LargeModel, timeout)
	if err != nil {
		return nil, err
	}
	var verifier tracker.Verifier
	if cfg.Oracle.SmallModel != "" {
		small, err := newTransport(ctx, cfg, cfg.Oracle.SmallModel, timeout)
		if err != nil {
			return nil, err
		}
		verifier = oracle.NewVerifier(small, cache)
	}

	engine := tracker.New(repo, oracle.NewClassifier(large, cache), verifier, tracker.Options{
		MaxDepth:       cfg.Budgets.MaxDepth,
		MaxIterations:  cfg.Budgets.MaxIterations,
		MaxEscalations: cfg.Budgets.MaxEscalations,
		ForcedVerdict:  tracker.Verdict(cfg.Budgets.ForcedVerdict),
		Hybrid:         cfg.Mode == config.ModeHybrid,
	})
	return &run.Runner{
		Repo:   repo,
		Engine: engine,
		Store:  db.NewStore(storeDB),
		Mode:   cfg.Mode,
		Output: cfg.Output,
	}, nil
}

func newTransport(ctx context.Context, cfg config.Config, model string, timeout time.Duration) (oracle.Transport, error) {
	switch cfg.Oracle.Provider {
	case config.ProviderGemini:
		return oracle.NewGeminiTransport(ctx, oracle.GeminiConfig{
			APIKeyEnv: cfg.Oracle.APIKeyEnv,
			Model:     model,
			Timeout:   timeout,
		})
	default:
		return oracle.NewOpenAITransport(oracle.OpenAIConfig{
			BaseURL:   cfg.Oracle.BaseURL,
			APIKeyEnv: cfg.Oracle.APIKeyEnv,
			Model:     model,
			Timeout:   timeout,
		})
	}
}
