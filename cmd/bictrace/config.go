package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalagman/bictrace/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configPrintCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "validate",
		Short:        "Validate the config file against the schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			if _, err := loadConfig(workDir); err != nil {
				return err
			}
			fmt.Println("config is valid")
			return nil
		},
	}
}

func configPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "print",
		Short:        "Print the effective configuration with defaults applied",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
}

func printConfig(cfg config.Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fatal(err)
		return
	}
	fmt.Println(string(data))
}
