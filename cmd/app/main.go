package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wichananm65/users-api/internal/config"
	"github.com/wichananm65/users-api/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "users-api",
	Short: "CRUD HTTP API for user records",
	// running the binary without a subcommand serves the API
	RunE: runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads and checks the configuration and builds the logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
