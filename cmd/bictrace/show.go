package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalagman/bictrace/internal/db"
	"github.com/metalagman/bictrace/internal/report"
	"github.com/metalagman/bictrace/internal/tracker"
)

func showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:          "show [run-id]",
		Short:        "Show the results of a trace run, latest by default",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			storeDB, closeFn, err := openDB(workDir, cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			store := db.NewStore(storeDB)

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			} else {
				runID, err = store.LatestRunID(cmd.Context())
				if err != nil {
					return err
				}
				if runID == "" {
					return fmt.Errorf("no trace runs recorded yet")
				}
			}

			rec, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("unknown run id %q", runID)
			}
			traces, err := store.ListTraces(cmd.Context(), runID)
			if err != nil {
				return err
			}
			results, err := decodeResults(traces)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			md := report.Markdown(runID, rec.FixCommit, results)
			fmt.Print(report.Render(md))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result array")
	return cmd
}

func decodeResults(traces []db.TraceRecord) ([]tracker.Result, error) {
	results := make([]tracker.Result, 0, len(traces))
	for _, rec := range traces {
		var chain tracker.Chain
		if err := json.Unmarshal([]byte(rec.ChainJSON), &chain); err != nil {
			return nil, fmt.Errorf("decode chain for %s:%d: %w", rec.FilePath, rec.LineNum, err)
		}
		results = append(results, tracker.Result{
			FixCommit:     rec.FixCommit,
			BICCommit:     rec.BICCommit,
			Verified:      rec.Verified,
			Iterations:    rec.Iterations,
			TrackingChain: chain,
		})
	}
	return results, nil
}
