package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salarysys/payrun/internal/config"
	"github.com/salarysys/payrun/internal/store"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the configuration for semantic correctness.

This includes:
- Batch sizes, intervals and resize factors
- Logging level and format
- Database pool settings and connection string syntax

The database itself is not contacted.`,
		Example: `  # Validate current configuration
  payrun config validate

  # Validate and show detailed information
  payrun config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Database.URL == "" {
		cmd.Printf("Warning: no database URL configured; set database.url or %s\n", config.EnvDatabaseURL)
	} else {
		src, err := store.NewPGSource(store.Options{URL: cfg.Database.URL, Logger: logger})
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		src.Close()
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	bc := cfg.ToBatchConfig().Normalize()

	cmd.Println()
	cmd.Println("Configuration details:")
	if path := cfg.Path(); path != "" {
		cmd.Printf("  Config file: %s\n", path)
	} else {
		cmd.Println("  Config file: none (defaults)")
	}
	cmd.Printf("  Batch size: %d (min %d, max %d)\n", bc.InitialBatchSize, bc.MinBatchSize, bc.MaxBatchSize)
	cmd.Printf("  Latency target: %s\n", bc.LatencyTarget)
	cmd.Printf("  Progress interval: %s\n", bc.ProgressInterval)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	cmd.Printf("  Output directory: %s\n", cfg.Export.OutputDir)
	if cfg.Metrics.TextfilePath != "" {
		cmd.Printf("  Metrics textfile: %s\n", cfg.Metrics.TextfilePath)
	}
}
