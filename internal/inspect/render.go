package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/salarysys/payrun/internal/report"
)

// maxCellWidth truncates long sample values in text output.
const maxCellWidth = 100

// maxDefaultWidth truncates column defaults in the schema table.
const maxDefaultWidth = 30

// RenderText prints p as the sectioned report shown by `payrun inspect`.
func RenderText(w io.Writer, p *Profile) error {
	_, _ = fmt.Fprintf(w, "\n=== %s ===\n", p.Table)

	_, _ = fmt.Fprintln(w, "\nColumns:")
	rows := [][]string{{"Column Name", "Data Type", "Max Length", "Nullable", "Default"}}
	for _, c := range p.Columns {
		maxLen, def := "N/A", "None"
		if c.MaxLength != nil {
			maxLen = strconv.FormatInt(*c.MaxLength, 10)
		}
		if c.Default != nil {
			def = truncate(*c.Default, maxDefaultWidth)
		}
		rows = append(rows, []string{c.Name, c.Type, maxLen, c.Nullable, def})
	}
	if err := report.WriteColumns(w, rows); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "\nSample data (%d rows):\n", p.Samples.Len())
	if p.Samples != nil {
		names := p.Samples.ColumnNames()
		for i, row := range p.Samples.Rows {
			_, _ = fmt.Fprintf(w, "\nRow %d:\n", i+1)
			for j, v := range row {
				val := "NULL"
				if v != nil {
					val = truncate(report.FormatValue(v, true), maxCellWidth)
				}
				_, _ = fmt.Fprintf(w, "  %s: %s\n", names[j], val)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nTotal records in %s: %s\n", p.Table, report.FormatCount(p.TotalRecords))

	_, _ = fmt.Fprintln(w, "\nContribution base columns:")
	if len(p.ContributionColumns) == 0 {
		_, err := fmt.Fprintln(w, "No obvious contribution base columns found. Manual inspection needed.")
		return err
	}
	_, _ = fmt.Fprintf(w, "Found %d potential contribution base columns:\n", len(p.ContributionColumns))
	for _, c := range p.ContributionColumns {
		_, _ = fmt.Fprintf(w, "  - %s\n", c)
	}
	if len(p.Stats) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w)
	stats := [][]string{{"Column", "Min", "Max", "Avg", "Distinct", "Non-null"}}
	for _, s := range p.Stats {
		avg := "N/A"
		if s.Avg != nil {
			avg = report.FormatAmount(*s.Avg)
		}
		stats = append(stats, []string{
			s.Column, s.Min, s.Max, avg,
			report.FormatCount(s.Distinct), report.FormatCount(s.NonNull),
		})
	}
	return report.WriteColumns(w, stats)
}

// WriteJSON writes p as indented JSON to path, creating parent directories.
func WriteJSON(path string, p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err = os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// JSONFilename returns the default profile file name for ref, such as
// employee_salary_configs_schema.json.
func JSONFilename(ref TableRef) string {
	return ref.Name + "_schema.json"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
