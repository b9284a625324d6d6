package main

import (
	"fmt"

	"github.com/jpalmerr/carestore/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a carestore configuration file without starting anything.

This command parses the YAML, expands environment variables, and validates
all fields. Useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  carestore validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	snapshot := "disabled"
	if cfg.Snapshot.Path != "" {
		snapshot = fmt.Sprintf("%s (flush every %s)", cfg.Snapshot.Path, cfg.Snapshot.FlushInterval.Duration())
	}
	server := "disabled"
	if cfg.Port != 0 {
		server = fmt.Sprintf("port %d", cfg.Port)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Server:    %s\n", server)
	fmt.Printf("  Log level: %s\n", cfg.LogLevel)
	fmt.Printf("  Snapshot:  %s\n", snapshot)

	return nil
}
