package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jpalmerr/carestore"
	"github.com/jpalmerr/carestore/profile"
	"github.com/spf13/cobra"
)

// profileCmd groups offline operations on caregiver profiles in a snapshot
// file. The file must not be held open by a running serve process.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and moderate caregiver profiles in a snapshot file",
	Long: `Inspect and moderate caregiver profiles stored in a snapshot file.

Stop any running "carestore serve" using the same file first; the
snapshot file is locked while open.

Example:
  carestore profile show --snapshot carestore.db user-42
  carestore profile approve --snapshot carestore.db user-42
  carestore profile reject --snapshot carestore.db --reason "blurry id" user-42`,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <userID>",
	Short: "Print a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSnapshot(cmd, func(cs *carestore.CareStore) error {
			return printProfile(cs.Profiles().Status(args[0]))
		})
	},
}

var profileApproveCmd = &cobra.Command{
	Use:   "approve <userID>",
	Short: "Approve a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSnapshot(cmd, func(cs *carestore.CareStore) error {
			if err := cs.Profiles().Approve(args[0]); err != nil {
				return err
			}
			return printProfile(cs.Profiles().Status(args[0]))
		})
	},
}

var profileRejectCmd = &cobra.Command{
	Use:   "reject <userID>",
	Short: "Reject a profile with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return withSnapshot(cmd, func(cs *carestore.CareStore) error {
			if err := cs.Profiles().Reject(args[0], reason); err != nil {
				return err
			}
			return printProfile(cs.Profiles().Status(args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileApproveCmd, profileRejectCmd)

	profileCmd.PersistentFlags().String("snapshot", "", "path to snapshot file (required)")
	_ = profileCmd.MarkPersistentFlagRequired("snapshot")

	profileRejectCmd.Flags().String("reason", "", "rejection reason shown to the caregiver")
}

// withSnapshot opens the snapshot file, runs fn and writes the result back.
func withSnapshot(cmd *cobra.Command, fn func(cs *carestore.CareStore) error) error {
	path, _ := cmd.Flags().GetString("snapshot")

	cs, err := carestore.New(
		carestore.WithSnapshotPath(path),
		carestore.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}

	if err := fn(cs); err != nil {
		_ = cs.Close()
		return err
	}
	return cs.Close()
}

func printProfile(p profile.Profile) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
