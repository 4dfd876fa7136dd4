package inspect_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salarysys/payrun/internal/inspect"
	"github.com/salarysys/payrun/internal/report"
	"github.com/salarysys/payrun/internal/store/storetest"
)

func strPtr(s string) *string { return &s }

// salaryConfigs returns a fake source holding payroll.employee_salary_configs.
func salaryConfigs(t *testing.T) (*storetest.Source, inspect.TableRef) {
	t.Helper()
	ref, err := inspect.ParseTable("payroll.employee_salary_configs")
	require.NoError(t, err)

	src := storetest.New()
	src.Tables[inspect.ColumnsSQL] = &report.Table{
		Columns: []report.Column{{Name: "column_name"}, {Name: "data_type"}, {Name: "character_maximum_length"},
			{Name: "is_nullable"}, {Name: "column_default"}},
		Rows: [][]any{
			{"employee_id", "bigint", nil, "NO", nil},
			{"social_insurance_base", "numeric", nil, "YES", nil},
			{"housing_fund_base", "numeric", nil, "YES", "0"},
			{"base_note", "character varying", int32(200), "YES", nil},
			{"effective_date", "date", nil, "NO", "CURRENT_DATE"},
		},
	}
	effective := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	samples := &report.Table{
		Columns: []report.Column{{Name: "employee_id"}, {Name: "social_insurance_base", Numeric: true},
			{Name: "housing_fund_base", Numeric: true}, {Name: "base_note"}, {Name: "effective_date"}},
	}
	for i := range 4 {
		samples.Rows = append(samples.Rows,
			[]any{int64(i + 1), report.Decimal("8500.00"), nil, "调整", effective})
	}
	src.Tables[ref.SampleSQL()] = samples
	src.Tables[ref.CountSQL()] = &report.Table{Columns: []report.Column{{Name: "count"}}, Rows: [][]any{{int64(18248)}}}
	src.Tables[ref.StatsSQL("social_insurance_base")] = &report.Table{
		Columns: []report.Column{{Name: "min"}, {Name: "max"}, {Name: "avg"}, {Name: "count"}, {Name: "count"}},
		Rows:    [][]any{{"4200.00", "31884.00", 9876.543, int64(312), int64(18000)}},
	}
	// housing_fund_base has no values.
	src.Tables[ref.StatsSQL("housing_fund_base")] = &report.Table{
		Columns: []report.Column{{Name: "min"}, {Name: "max"}, {Name: "avg"}, {Name: "count"}, {Name: "count"}},
		Rows:    [][]any{{nil, nil, nil, int64(0), int64(0)}},
	}
	return src, ref
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		in      string
		want    inspect.TableRef
		wantErr bool
	}{
		{in: "employee_salary_configs", want: inspect.TableRef{Schema: "payroll", Name: "employee_salary_configs"}},
		{in: "reports.v_employees_basic", want: inspect.TableRef{Schema: "reports", Name: "v_employees_basic"}},
		{in: "payroll.users; DROP TABLE x", wantErr: true},
		{in: "a.b.c", wantErr: true},
		{in: "", wantErr: true},
		{in: `pay"roll.x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := inspect.ParseTable(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, inspect.ErrInvalidTable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Schema+"."+tt.want.Name, got.String())
		})
	}
}

func TestTableRef_SQL(t *testing.T) {
	ref := inspect.TableRef{Schema: "payroll", Name: "employee_salary_configs"}
	assert.Equal(t, `SELECT * FROM "payroll"."employee_salary_configs" ORDER BY 1 LIMIT $1`, ref.SampleSQL())
	assert.Equal(t, `SELECT COUNT(*) FROM "payroll"."employee_salary_configs"`, ref.CountSQL())
	assert.Contains(t, ref.StatsSQL("base"), `COUNT(DISTINCT "base")`)
	assert.Contains(t, ref.StatsSQL("base"), `WHERE "base" IS NOT NULL`)
}

func TestInspect(t *testing.T) {
	src, ref := salaryConfigs(t)

	p, err := inspect.New(src).Inspect(context.Background(), ref, 0)
	require.NoError(t, err)

	assert.Equal(t, "payroll.employee_salary_configs", p.Table)
	require.Len(t, p.Columns, 5)
	assert.Equal(t, "social_insurance_base", p.Columns[1].Name)
	assert.Nil(t, p.Columns[0].MaxLength)
	require.NotNil(t, p.Columns[3].MaxLength)
	assert.Equal(t, int64(200), *p.Columns[3].MaxLength)
	require.NotNil(t, p.Columns[2].Default)
	assert.Equal(t, "0", *p.Columns[2].Default)

	assert.Equal(t, int64(18248), p.TotalRecords)
	assert.Equal(t, 4, p.Samples.Len())
	require.Len(t, p.SampleData, 3)
	assert.InDelta(t, 8500.0, p.SampleData[0]["social_insurance_base"], 0.001)
	assert.Equal(t, "2025-01-01T00:00:00Z", p.SampleData[0]["effective_date"])
	assert.Nil(t, p.SampleData[0]["housing_fund_base"])

	assert.Equal(t, []string{"social_insurance_base", "housing_fund_base", "base_note"}, p.ContributionColumns)
	require.Len(t, p.Stats, 1)
	s := p.Stats[0]
	assert.Equal(t, "social_insurance_base", s.Column)
	assert.Equal(t, "4200.00", s.Min)
	assert.Equal(t, "31884.00", s.Max)
	require.NotNil(t, s.Avg)
	assert.InDelta(t, 9876.543, *s.Avg, 0.0001)
	assert.Equal(t, int64(312), s.Distinct)
	assert.Equal(t, int64(18000), s.NonNull)

	queries := src.Queries()
	assert.Equal(t, []any{"payroll", "employee_salary_configs"}, queries[0].Args)
	assert.Equal(t, []any{inspect.DefaultSampleRows}, queries[1].Args)
	// Statistics are only computed for numeric columns.
	assert.Len(t, queries, 5)
}

func TestInspect_TableNotFound(t *testing.T) {
	src := storetest.New()
	_, err := inspect.New(src).Inspect(context.Background(), inspect.TableRef{Schema: "payroll", Name: "absent"}, 5)
	require.ErrorIs(t, err, inspect.ErrTableNotFound)
}

func TestInspect_QueryError(t *testing.T) {
	src, ref := salaryConfigs(t)
	src.Err = errors.New("permission denied for schema payroll")

	_, err := inspect.New(src).Inspect(context.Background(), ref, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRenderText(t *testing.T) {
	src, ref := salaryConfigs(t)
	p, err := inspect.New(src).Inspect(context.Background(), ref, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, inspect.RenderText(&buf, p))
	out := buf.String()

	assert.Contains(t, out, "=== payroll.employee_salary_configs ===")
	assert.Contains(t, out, "Column Name")
	assert.Contains(t, out, "CURRENT_DATE")
	assert.Contains(t, out, "Sample data (4 rows):")
	assert.Contains(t, out, "  base_note: 调整")
	assert.Contains(t, out, "  housing_fund_base: NULL")
	assert.Contains(t, out, "Total records in payroll.employee_salary_configs: 18,248")
	assert.Contains(t, out, "Found 3 potential contribution base columns:")
	assert.Contains(t, out, "9,876.54")
	assert.Contains(t, out, "31884.00")
}

func TestRenderText_NoContributionColumns(t *testing.T) {
	p := &inspect.Profile{
		Table:   "payroll.audit_log",
		Columns: []inspect.ColumnInfo{{Name: "id", Type: "bigint", Nullable: "NO", Default: strPtr("nextval('seq')")}},
	}
	var buf bytes.Buffer
	require.NoError(t, inspect.RenderText(&buf, p))
	assert.Contains(t, buf.String(), "Sample data (0 rows):")
	assert.Contains(t, buf.String(), "No obvious contribution base columns found.")
}

func TestWriteJSON(t *testing.T) {
	src, ref := salaryConfigs(t)
	p, err := inspect.New(src).Inspect(context.Background(), ref, 5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", inspect.JSONFilename(ref))
	require.NoError(t, inspect.WriteJSON(path, p))
	assert.Equal(t, "employee_salary_configs_schema.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "payroll.employee_salary_configs", decoded["table"])
	assert.InDelta(t, 18248, decoded["total_records"], 0)
	assert.Len(t, decoded["columns"], 5)
	assert.Len(t, decoded["sample_data"], 3)
	assert.NotContains(t, decoded, "Samples")
}
