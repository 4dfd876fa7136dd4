package report

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer is the locale-aware message printer for number formatting.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatCount formats an integer with thousand separators.
// Example: FormatCount(18248) returns "18,248".
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatAmount formats a money amount with two decimals and thousand
// separators. Example: FormatAmount(1234.5) returns "1,234.50".
func FormatAmount(f float64) string {
	return printer.Sprintf("%.2f", f)
}

// RenderSummary prints the per-category summary of a report: a header with
// the period dates, one row per category and a total row.
func RenderSummary(w io.Writer, kind Kind, info PeriodInfo, summary *Table) error {
	_, _ = fmt.Fprintf(w, "\n=== %s %s统计 ===\n", info.Name, kind.Title)
	_, _ = fmt.Fprintf(w, "周期时间: %s 至 %s\n", info.StartDate.Format(DateLayout), info.EndDate.Format(DateLayout))
	_, _ = fmt.Fprintf(w, "发放日期: %s\n\n", info.PayDate.Format(DateLayout))

	cols := kind.SummaryColumns
	index := make([]int, len(cols))
	for i, c := range cols {
		index[i] = summary.ColumnIndex(c.Key)
	}

	labels := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
		rules[i] = rule(c.Label)
	}
	lines := [][]string{labels, rules}

	totals := make([]float64, len(cols))
	for _, row := range summary.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if index[i] < 0 {
				continue
			}
			v := row[index[i]]
			cells[i] = formatSummaryCell(c, v)
			if f, ok := ToFloat(v); ok && c.Total {
				totals[i] += f
			}
		}
		lines = append(lines, cells)
	}

	cells := make([]string, len(cols))
	cells[0] = "总计"
	for i, c := range cols {
		if i == 0 || !c.Total {
			continue
		}
		cells[i] = formatTotal(c, totals[i])
	}
	lines = append(lines, rules, cells)

	if err := WriteColumns(w, lines); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	_, err := fmt.Fprintln(w)
	return err
}

func formatSummaryCell(c SummaryColumn, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		if c.Key == "employee_count" {
			return FormatCount(x) + "人"
		}
		return FormatCount(x)
	}
	if f, ok := ToFloat(v); ok {
		return FormatAmount(f)
	}
	return FormatValue(v, false)
}

func formatTotal(c SummaryColumn, total float64) string {
	if c.Key == "employee_count" {
		return FormatCount(int64(total)) + "人"
	}
	return FormatAmount(total)
}

// RenderFieldAnalysis prints how the columns of the payroll view break down
// into basic, earning, deduction and other fields.
func RenderFieldAnalysis(w io.Writer, fields []string) {
	c := ClassifyFields(fields)
	_, _ = fmt.Fprintln(w, "\n=== 工资明细字段结构分析 ===")
	_, _ = printer.Fprintf(w, "总字段数: %d\n", len(fields))
	_, _ = printer.Fprintf(w, "基本信息字段: %d 个\n", len(c.Basic))
	_, _ = printer.Fprintf(w, "收入项目字段: %d 个\n", len(c.Earning))
	_, _ = printer.Fprintf(w, "扣除项目字段: %d 个\n", len(c.Deduction))
	_, _ = printer.Fprintf(w, "其他字段: %d 个\n\n", len(c.Other))
}
