package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salarysys/payrun/internal/report"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    report.Period
		wantErr bool
	}{
		{in: "2025-06", want: report.Period{Year: 2025, Month: time.June}},
		{in: "1999-12", want: report.Period{Year: 1999, Month: time.December}},
		{in: "2025-13", wantErr: true},
		{in: "2025-6", wantErr: true},
		{in: "202506", wantErr: true},
		{in: "2025/06", wantErr: true},
		{in: "", wantErr: true},
		{in: "2025-06-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := report.ParsePeriod(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, report.ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestPeriod_DisplayName(t *testing.T) {
	p, err := report.ParsePeriod("2025-06")
	require.NoError(t, err)
	assert.Equal(t, "2025年06月", p.DisplayName())
}

func TestKind_QueryArgs(t *testing.T) {
	info := report.PeriodInfo{ID: 42, Name: "2025年06月"}

	payroll := kindNamed(t, report.KindPayroll)
	assert.Equal(t, []any{"%2025年06月%"}, payroll.QueryArgs(info))

	categories := kindNamed(t, report.KindCategories)
	assert.Equal(t, []any{int64(42)}, categories.QueryArgs(info))
}

// kindNamed returns the report kind called name.
func kindNamed(t *testing.T, name string) report.Kind {
	t.Helper()
	for _, k := range report.Kinds() {
		if k.Name == name {
			return k
		}
	}
	t.Fatalf("no report kind %q", name)
	return report.Kind{}
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{report.KindPayroll, report.KindContributionBase, report.KindCategories}, report.KindNames())

	for _, k := range report.Kinds() {
		assert.NotEmpty(t, k.Title, k.Name)
		assert.NotEmpty(t, k.FilenamePrefix, k.Name)
		assert.Contains(t, k.DetailSQL, "$1", k.Name)
		assert.Contains(t, k.SummarySQL, "$1", k.Name)
		assert.Equal(t, "category_name", k.SummaryColumns[0].Key, k.Name)
	}
}

func TestKind_IsTimestamp(t *testing.T) {
	payroll := kindNamed(t, report.KindPayroll)
	assert.True(t, payroll.IsTimestamp("计算时间"))
	assert.True(t, payroll.IsTimestamp("审计时间"))
	assert.False(t, payroll.IsTimestamp("入职日期"))

	base := kindNamed(t, report.KindContributionBase)
	assert.False(t, base.IsTimestamp("计算时间"))
}

func TestOutputFilename(t *testing.T) {
	p := report.Period{Year: 2025, Month: time.June}
	now := time.Date(2025, time.July, 1, 10, 15, 0, 0, time.Local)

	payroll := kindNamed(t, report.KindPayroll)
	base := kindNamed(t, report.KindContributionBase)
	categories := kindNamed(t, report.KindCategories)

	assert.Equal(t, "工资明细_有效字段_2025-06_20250701_101500.csv",
		report.OutputFilename(payroll, p, report.DefaultSuffix(payroll, false), now))
	assert.Equal(t, "工资明细_完整字段_2025-06_20250701_101500.csv",
		report.OutputFilename(payroll, p, report.DefaultSuffix(payroll, true), now))
	assert.Equal(t, "员工缴费基数_2025-06_20250701_101500.csv",
		report.OutputFilename(base, p, report.DefaultSuffix(base, false), now))
	assert.Equal(t, "员工身份类别_2025-06_20250701_101500.csv",
		report.OutputFilename(categories, p, report.DefaultSuffix(categories, true), now))
}
