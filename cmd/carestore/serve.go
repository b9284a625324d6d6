package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/carestore"
	"github.com/jpalmerr/carestore/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the store",
	Long: `Run carestore until interrupted.

The process will:
  - Load configuration from the specified YAML file
  - Restore state from the snapshot file, if configured
  - Flush changes to the snapshot file periodically and on shutdown
  - Serve the inspection API on the configured port, if any

Example:
  carestore serve -c config.yaml
  carestore serve --config /etc/carestore/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg, os.Stderr)
	logger.Info("config loaded",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"snapshot", cfg.Snapshot.Path,
	)

	opts := append(config.Options(cfg), carestore.WithLogger(logger))
	cs, err := carestore.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create carestore: %w", err)
	}
	defer func() {
		if err := cs.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cs.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("carestore error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("carestore error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
