package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salarysys/payrun/internal/config"
	"github.com/salarysys/payrun/internal/logging"
	"github.com/salarysys/payrun/internal/store"
)

// isTerminal checks if the given writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// SourceOpener opens the payroll data source for a command.
type SourceOpener func(ctx context.Context, cfg *config.Config) (store.Source, error)

// Deps are the external dependencies of the command tree.
type Deps struct {
	OpenSource SourceOpener
	Now        func() time.Time
	IsTerminal func(w io.Writer) bool
}

// DefaultDeps returns the production dependencies: a Postgres source, the
// wall clock and real terminal detection.
func DefaultDeps() Deps {
	return Deps{
		OpenSource: openPGSource,
		Now:        time.Now,
		IsTerminal: isTerminal,
	}
}

func (d Deps) withDefaults() Deps {
	def := DefaultDeps()
	if d.OpenSource == nil {
		d.OpenSource = def.OpenSource
	}
	if d.Now == nil {
		d.Now = def.Now
	}
	if d.IsTerminal == nil {
		d.IsTerminal = def.IsTerminal
	}
	return d
}

func openPGSource(ctx context.Context, cfg *config.Config) (store.Source, error) {
	return store.NewPGSource(store.Options{
		URL:            cfg.Database.URL,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout(),
		Logger:         *logging.FromContext(ctx),
	})
}

// NewRootCmd creates the root Cobra command for the payrun CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithDeps(ver, DefaultDeps())
}

// NewRootCmdWithDeps creates the root command with explicit dependencies for
// testability.
func NewRootCmdWithDeps(ver string, deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "payrun",
		Short:         "Payroll report exporter",
		Long:          "payrun: export payroll, contribution base and personnel category reports to CSV",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $PAYRUN_HOME/config.yaml)")
	cmd.AddCommand(newExportCmd(deps), newInspectCmd(deps), newConfigCmd())

	return cmd
}

// loadConfig installs the --config file as the global configuration when the
// flag is given.
func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.SetGlobalConfig(cfg)
	return nil
}

const rootCmdExample = `  # Export the June 2025 payroll details, dropping all-zero pay items
  payrun export payroll 2025-06

  # Export every column to a chosen file
  payrun export payroll --period 2025-06 --include-zero-fields -o payroll.csv

  # Show the contribution base summary without writing a file
  payrun export contribution-base 2025-06 --stats-only

  # Export personnel categories
  payrun export categories 2025-06

  # Profile a table before migrating it
  payrun inspect payroll.employee_salary_configs

  # Initialize configuration
  payrun config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd(), NewConfigShowCmd())
	return cmd
}
