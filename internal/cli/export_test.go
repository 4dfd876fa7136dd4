package cli_test

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salarysys/payrun/internal/cli"
	"github.com/salarysys/payrun/internal/export"
	"github.com/salarysys/payrun/internal/report"
	"github.com/salarysys/payrun/internal/store"
)

// readExport parses a CSV written by the export command.
func readExport(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "\ufeff"), "missing UTF-8 BOM")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportPayroll_WritesFile(t *testing.T) {
	setupCLITest(t)
	src := newFakeSource(t)
	out := filepath.Join(t.TempDir(), "payroll.csv")

	stdout, stderr, err := execute(t, fakeDeps(src), "export", "payroll", "2025-06", "-o", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "=== 2025年06月 工资明细统计 ===")
	assert.Contains(t, stdout, "周期时间: 2025-06-01 至 2025-06-30")
	assert.Contains(t, stdout, "Exported 3 rows to")
	assert.Contains(t, stdout, "Dropped 1 pay item columns")
	assert.Contains(t, stderr, "exported 3/3 (100%)")

	records := readExport(t, out)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"员工编号", "姓名", "人员类别", "基本工资", "个人所得税", "计算时间"}, records[0])
	assert.Equal(t, "张三", records[1][1])
	assert.Equal(t, "2025-06-28 09:30:00", records[1][5])

	queries := src.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, []any{"%2025年06月%"}, queries[0].Args)
	assert.True(t, src.Closed())
}

func TestExportPayroll_PeriodFlag(t *testing.T) {
	setupCLITest(t)
	out := filepath.Join(t.TempDir(), "payroll.csv")

	_, _, err := execute(t, fakeDeps(newFakeSource(t)), "export", "payroll", "--period", "2025-06", "-o", out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestExportPayroll_IncludeZeroFields(t *testing.T) {
	setupCLITest(t)
	out := filepath.Join(t.TempDir(), "payroll.csv")

	stdout, _, err := execute(t, fakeDeps(newFakeSource(t)),
		"export", "payroll", "2025-06", "--include-zero-fields", "-o", out)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Dropped")

	records := readExport(t, out)
	assert.Contains(t, records[0], "补发工资")
	assert.Len(t, records[0], 7)
}

func TestExportPayroll_IncludeZeroFieldsFromConfig(t *testing.T) {
	setupCLITest(t)
	out := filepath.Join(t.TempDir(), "payroll.csv")
	cfgPath := writeConfig(t, "export:\n  include_zero_fields: true\n")

	_, _, err := execute(t, fakeDeps(newFakeSource(t)),
		"--config", cfgPath, "export", "payroll", "2025-06", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, readExport(t, out)[0], "补发工资")

	// The flag wins over the file.
	_, _, err = execute(t, fakeDeps(newFakeSource(t)),
		"--config", cfgPath, "export", "payroll", "2025-06", "--include-zero-fields=false", "-o", out)
	require.NoError(t, err)
	assert.NotContains(t, readExport(t, out)[0], "补发工资")
}

func TestExport_DefaultFilename(t *testing.T) {
	setupCLITest(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, "export:\n  output_dir: "+dir+"\n")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"payroll", "2025-06"}, "工资明细_有效字段_2025-06_20250701_101500.csv"},
		{[]string{"payroll", "2025-06", "--include-zero-fields"}, "工资明细_完整字段_2025-06_20250701_101500.csv"},
		{[]string{"contribution-base", "2025-06"}, "员工缴费基数_2025-06_20250701_101500.csv"},
		{[]string{"categories", "2025-06"}, "员工身份类别_2025-06_20250701_101500.csv"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "export"}, tt.args...)
			_, _, err := execute(t, fakeDeps(newFakeSource(t)), args...)
			require.NoError(t, err)
			assert.FileExists(t, filepath.Join(dir, tt.want))
		})
	}
}

func TestExport_StatsOnly(t *testing.T) {
	setupCLITest(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, "export:\n  output_dir: "+dir+"\n")
	src := newFakeSource(t)

	stdout, _, err := execute(t, fakeDeps(src), "--config", cfgPath, "export", "contribution-base", "2025-06", "--stats-only")
	require.NoError(t, err)
	assert.Contains(t, stdout, "缴费基数统计")
	assert.Contains(t, stdout, "Stats only, no file exported.")
	assert.Len(t, src.Queries(), 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExport_AnalyzeFields(t *testing.T) {
	setupCLITest(t)
	src := newFakeSource(t)

	stdout, _, err := execute(t, fakeDeps(src), "export", "payroll", "2025-06", "--stats-only", "--analyze-fields")
	require.NoError(t, err)
	assert.Contains(t, stdout, "=== 工资明细字段结构分析 ===")
	assert.Contains(t, stdout, "总字段数: 7")
	assert.Contains(t, stdout, "Stats only, no file exported.")
	assert.Len(t, src.Queries(), 2)
}

func TestExport_AnalyzeFlagOnlyForPayroll(t *testing.T) {
	setupCLITest(t)
	_, _, err := execute(t, fakeDeps(newFakeSource(t)), "export", "categories", "2025-06", "--analyze-fields")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestExport_PeriodErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
		code int
	}{
		{"missing", []string{"export", "payroll"}, cli.ErrPeriodRequired, cli.ExitFailure},
		{"malformed", []string{"export", "payroll", "2025/06"}, report.ErrInvalidPeriod, cli.ExitFailure},
		{"bad month", []string{"export", "categories", "2025-13"}, report.ErrInvalidPeriod, cli.ExitFailure},
		{"not found", []string{"export", "payroll", "2024-01"}, store.ErrPeriodNotFound, cli.ExitNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLITest(t)
			_, _, err := execute(t, fakeDeps(newFakeSource(t)), tt.args...)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.code, cli.ExitCode(err))
		})
	}
}

func TestExport_NoRows(t *testing.T) {
	setupCLITest(t)
	src := newFakeSource(t)
	src.Tables[report.Kinds()[0].DetailSQL] = &report.Table{Columns: []report.Column{{Name: "员工编号"}}}
	out := filepath.Join(t.TempDir(), "empty.csv")

	_, _, err := execute(t, fakeDeps(src), "export", report.Kinds()[0].Name, "2025-06", "-o", out)
	require.ErrorIs(t, err, export.ErrNoRows)
	assert.Equal(t, cli.ExitNotFound, cli.ExitCode(err))
	assert.NoFileExists(t, out)
}

func TestExport_SourceErrors(t *testing.T) {
	setupCLITest(t)
	src := newFakeSource(t)
	src.Err = errors.New("relation does not exist")

	_, _, err := execute(t, fakeDeps(src), "export", "payroll", "2025-06")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
	assert.True(t, src.Closed())
}

func TestExport_InvalidConfig(t *testing.T) {
	setupCLITest(t)
	cfgPath := writeConfig(t, "batch:\n  shrink_factor: 1.5\n")

	_, _, err := execute(t, fakeDeps(newFakeSource(t)), "--config", cfgPath, "export", "payroll", "2025-06")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestExport_WritesMetricsTextfile(t *testing.T) {
	setupCLITest(t)
	dir := t.TempDir()
	prom := filepath.Join(dir, "payrun.prom")
	cfgPath := writeConfig(t, "metrics:\n  textfile_path: "+prom+"\n")

	_, _, err := execute(t, fakeDeps(newFakeSource(t)),
		"--config", cfgPath, "export", "categories", "2025-06", "-o", filepath.Join(dir, "categories.csv"))
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `payrun_runs_total{report="categories",status="completed"} 1`)
	assert.Contains(t, string(data), `payrun_batch_items_total{outcome="succeeded"} 3`)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"generic", errors.New("boom"), cli.ExitFailure},
		{"incomplete", export.ErrIncomplete, cli.ExitIncomplete},
		{"cancelled", export.ErrCancelled, cli.ExitCancelled},
		{"interrupted before export", fmt.Errorf("looking up period: %w", context.Canceled), cli.ExitCancelled},
		{"period not found", store.ErrPeriodNotFound, cli.ExitNotFound},
		{"no rows", export.ErrNoRows, cli.ExitNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cli.ExitCode(tt.err))
		})
	}
}

func TestExport_InterruptedBeforeWriteExitsCancelled(t *testing.T) {
	setupCLITest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := cli.NewRootCmdWithDeps("test", fakeDeps(newFakeSource(t)))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"export", "payroll", "2025-06", "-o", filepath.Join(t.TempDir(), "p.csv")})

	err := cmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, cli.ExitCancelled, cli.ExitCode(err))
}
