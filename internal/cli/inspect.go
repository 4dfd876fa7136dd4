package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/salarysys/payrun/internal/config"
	"github.com/salarysys/payrun/internal/inspect"
)

// newInspectCmd creates the inspect command, which profiles a table before
// its data is migrated.
func newInspectCmd(deps Deps) *cobra.Command {
	var (
		sampleRows int
		output     string
		noJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [SCHEMA.]TABLE",
		Short: "Show the schema, samples and contribution base statistics of a table",
		Long: fmt.Sprintf(`Profiles a database table: its columns from information_schema, a few
sample rows, the row count and min/max/average/distinct statistics for
numeric columns that look like contribution bases. The profile is also
written as JSON. Tables without a schema are looked up in %q.`, inspect.DefaultSchema),
		Example: `  # Profile the salary configuration table
  payrun inspect payroll.employee_salary_configs

  # Show ten sample rows and skip the JSON file
  payrun inspect employee_salary_configs --sample 10 --no-json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ref, err := inspect.ParseTable(args[0])
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

			profile, err := inspect.New(src).Inspect(ctx, ref, sampleRows)
			if err != nil {
				return err
			}
			if err = inspect.RenderText(cmd.OutOrStdout(), profile); err != nil {
				return err
			}
			logger.Info().Ctx(ctx).
				Str("table", profile.Table).
				Int64("rows", profile.TotalRecords).
				Int("columns", len(profile.Columns)).
				Msg("table inspected")

			if noJSON {
				return nil
			}
			path := output
			if path == "" {
				path = filepath.Join(cfg.Export.OutputDir, inspect.JSONFilename(ref))
			}
			if err = inspect.WriteJSON(path, profile); err != nil {
				return err
			}
			cmd.Printf("\nSchema exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&sampleRows, "sample", inspect.DefaultSampleRows, "number of sample rows to show")
	cmd.Flags().StringVarP(&output, "output", "o", "", "JSON profile path (default: <table>_schema.json in export.output_dir)")
	cmd.Flags().BoolVar(&noJSON, "no-json", false, "do not write the JSON profile")

	return cmd
}
