package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salarysys/payrun/internal/config"
	"github.com/salarysys/payrun/internal/export"
	"github.com/salarysys/payrun/internal/inspect"
	"github.com/salarysys/payrun/internal/logging"
	"github.com/salarysys/payrun/internal/metrics"
	"github.com/salarysys/payrun/internal/report"
	"github.com/salarysys/payrun/internal/store"
)

// ErrPeriodRequired is returned when neither the argument nor --period names
// a period.
var ErrPeriodRequired = errors.New("a payroll period is required, for example 2025-06")

// exportFlags holds the flags shared by every export subcommand.
type exportFlags struct {
	period            string
	output            string
	statsOnly         bool
	includeZeroFields bool
	analyzeFields     bool
}

// newExportCmd creates the export command group with one subcommand per
// report kind.
func newExportCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export payroll reports to CSV",
		Long: fmt.Sprintf(`Export a payroll report for one period to CSV.

The summary of the report is printed before the file is written.
Available reports: %s`, strings.Join(report.KindNames(), ", ")),
	}
	for _, kind := range report.Kinds() {
		cmd.AddCommand(newExportKindCmd(deps, kind))
	}
	return cmd
}

func newExportKindCmd(deps Deps, kind report.Kind) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   kind.Name + " [PERIOD]",
		Short: fmt.Sprintf("Export the %s report for a payroll period", kind.Title),
		Example: fmt.Sprintf(`  payrun export %[1]s 2025-06
  payrun export %[1]s --period 2025-06 --output report.csv
  payrun export %[1]s 2025-06 --stats-only`, kind.Name),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.period = args[0]
			}
			if !cmd.Flags().Changed("include-zero-fields") {
				flags.includeZeroFields = config.GetGlobalConfig().Export.IncludeZeroFields
			}
			return runExport(cmd, deps, kind, flags)
		},
	}

	cmd.Flags().StringVar(&flags.period, "period", "", "payroll period (YYYY-MM)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output CSV path (default: generated in export.output_dir)")
	cmd.Flags().BoolVar(&flags.statsOnly, "stats-only", false, "only print the summary, do not export a file")
	if kind.FiltersZeroFields {
		cmd.Flags().BoolVar(&flags.includeZeroFields, "include-zero-fields", false,
			"keep pay item columns that are zero for every employee")
		cmd.Flags().BoolVar(&flags.analyzeFields, "analyze-fields", false, "print the field structure of the report")
	}

	return cmd
}

// runExport looks up the period, prints the summary and writes the CSV.
func runExport(cmd *cobra.Command, deps Deps, kind report.Kind, flags exportFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flags.period == "" {
		return ErrPeriodRequired
	}
	period, err := report.ParsePeriod(flags.period)
	if err != nil {
		return err
	}

	cfg := config.GetGlobalConfig()
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	src, err := deps.OpenSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer src.Close()

	info, err := src.FindPeriod(ctx, period)
	if err != nil {
		return err
	}
	logger.Debug().Ctx(ctx).Int64("period_id", info.ID).Str("period", info.Name).Msg("period found")

	args := kind.QueryArgs(info)
	summary, err := src.Query(ctx, kind.SummarySQL, args...)
	if err != nil {
		return fmt.Errorf("loading summary: %w", err)
	}
	if err = report.RenderSummary(out, kind, info, summary); err != nil {
		return err
	}

	if flags.statsOnly && !flags.analyzeFields {
		cmd.Println("Stats only, no file exported.")
		return nil
	}

	table, err := src.Query(ctx, kind.DetailSQL, args...)
	if err != nil {
		return fmt.Errorf("loading %s rows: %w", kind.Name, err)
	}
	if flags.analyzeFields {
		report.RenderFieldAnalysis(out, table.ColumnNames())
	}
	if flags.statsOnly {
		cmd.Println("Stats only, no file exported.")
		return nil
	}

	path := flags.output
	if path == "" {
		name := report.OutputFilename(kind, period, report.DefaultSuffix(kind, flags.includeZeroFields), deps.Now())
		path = filepath.Join(cfg.Export.OutputDir, name)
	}

	return writeExport(cmd, deps, cfg, kind, table, path, flags.includeZeroFields)
}

func writeExport(
	cmd *cobra.Command,
	deps Deps,
	cfg *config.Config,
	kind report.Kind,
	table *report.Table,
	path string,
	includeZeroFields bool,
) error {
	ctx := cmd.Context()
	progress := newProgressPrinter(cmd.ErrOrStderr(), deps.IsTerminal(cmd.ErrOrStderr()))
	recorder := metrics.NewRecorder()

	exporter := export.New(export.Options{
		Batch:             cfg.ToBatchConfig(),
		Progress:          progress.Update,
		Observer:          recorder,
		Logger:            *logging.FromContext(ctx),
		IncludeZeroFields: includeZeroFields,
	})

	cmd.Printf("Exporting %s to %s\n", kind.Name, path)
	res, err := exporter.WriteFile(ctx, path, kind, table)
	progress.Done()

	recorder.ObserveRun(kind.Name, runStatus(err))
	if cfg.Metrics.TextfilePath != "" {
		if writeErr := recorder.WriteTextfile(cfg.Metrics.TextfilePath); writeErr != nil {
			logger.Warn().Ctx(ctx).Err(writeErr).Str("path", cfg.Metrics.TextfilePath).Msg("could not write metrics textfile")
		}
	}

	logger.Info().Ctx(ctx).
		Str("report", kind.Name).
		Str("path", path).
		Int("rows", res.Rows).
		Int("written", res.Written).
		Int("failed", res.Failed).
		Int("batches", res.Batches).
		Bool("cancelled", res.Cancelled).
		Msg("export finished")

	if err != nil {
		if errors.Is(err, export.ErrNoRows) {
			return fmt.Errorf("no %s rows for this period: %w", kind.Name, err)
		}
		return fmt.Errorf("export of %s: %w", path, err)
	}

	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}
	cmd.Printf("Exported %d rows to %s\n", res.Written, abs)
	if len(res.Dropped) > 0 {
		cmd.Printf("Dropped %d pay item columns that are zero for every employee; use --include-zero-fields to keep them\n",
			len(res.Dropped))
	}
	return nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return metrics.RunCompleted
	case errors.Is(err, export.ErrCancelled):
		return metrics.RunCancelled
	default:
		return metrics.RunIncomplete
	}
}

// Exit codes returned by ExitCode.
const (
	ExitFailure    = 1
	ExitIncomplete = 2
	ExitNotFound   = 3
	ExitCancelled  = 130
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, export.ErrCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, export.ErrIncomplete):
		return ExitIncomplete
	case errors.Is(err, store.ErrPeriodNotFound), errors.Is(err, export.ErrNoRows),
		errors.Is(err, inspect.ErrTableNotFound):
		return ExitNotFound
	default:
		return ExitFailure
	}
}
