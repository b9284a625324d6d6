// Package main is the entry point for the carestore CLI.
//
// Usage:
//
//	carestore serve -c config.yaml                       # Run the store with snapshots and inspection server
//	carestore validate -c config.yaml                    # Validate configuration
//	carestore profile show --snapshot data.db <userID>   # Inspect a caregiver profile
//	carestore version                                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only displays help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "carestore",
	Short: "An observable in-memory store for care platform state",
	Long: `carestore keeps appointment, caregiver profile and training progress
state in memory, notifies subscribers on every change, and can persist
everything to a snapshot file.

Quick start:
  1. Create a config file (carestore.yaml)
  2. Run: carestore serve -c carestore.yaml
  3. Open http://localhost:8080/api/state

Example config:
  port: 8080
  log_level: info
  snapshot:
    path: ${CARESTORE_DATA:-/var/lib/carestore}/carestore.db
    flush_interval: 5s`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this carestore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("carestore %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
