// Package inspect profiles a database table: its column schema, a few sample
// rows, the row count and value statistics for contribution base columns.
// It is used to check a table's layout before migrating data out of it.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/salarysys/payrun/internal/report"
	"github.com/salarysys/payrun/internal/store"
)

// DefaultSchema is used when a table name has no schema qualifier.
const DefaultSchema = "payroll"

// DefaultSampleRows is the number of sample rows fetched by default.
const DefaultSampleRows = 5

// jsonSampleRows is the number of sample rows kept in the JSON profile.
const jsonSampleRows = 3

// Errors returned by the inspector.
var (
	ErrInvalidTable  = errors.New("invalid table name")
	ErrTableNotFound = errors.New("table not found")
)

//nolint:gochecknoglobals // Compiled once.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// contributionKeywords mark columns that hold contribution base figures.
//
//nolint:gochecknoglobals // Fixed keyword list.
var contributionKeywords = []string{"base", "contribution", "social", "insurance", "pension", "medical", "housing"}

// numericTypes are the information_schema data types statistics are
// computed for.
//
//nolint:gochecknoglobals // Fixed type list.
var numericTypes = map[string]bool{
	"numeric":          true,
	"integer":          true,
	"bigint":           true,
	"smallint":         true,
	"real":             true,
	"double precision": true,
}

// ColumnsSQL lists the columns of a table in ordinal order.
const ColumnsSQL = `
SELECT
    column_name::text,
    data_type::text,
    character_maximum_length::int,
    is_nullable::text,
    column_default::text
FROM information_schema.columns
WHERE table_schema = $1
AND table_name = $2
ORDER BY ordinal_position`

// TableRef names a table.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTable parses "schema.table" or "table". Both parts must be plain SQL
// identifiers since they are interpolated into queries.
func ParseTable(s string) (TableRef, error) {
	schema, name, ok := strings.Cut(s, ".")
	if !ok {
		schema, name = DefaultSchema, s
	}
	if !identifier.MatchString(schema) || !identifier.MatchString(name) {
		return TableRef{}, fmt.Errorf("%w: %q", ErrInvalidTable, s)
	}
	return TableRef{Schema: schema, Name: name}, nil
}

// String returns schema.table.
func (t TableRef) String() string {
	return t.Schema + "." + t.Name
}

func (t TableRef) quoted() string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
}

// SampleSQL selects the first rows of the table ordered by its first column.
func (t TableRef) SampleSQL() string {
	return "SELECT * FROM " + t.quoted() + " ORDER BY 1 LIMIT $1"
}

// CountSQL counts the rows of the table.
func (t TableRef) CountSQL() string {
	return "SELECT COUNT(*) FROM " + t.quoted()
}

// StatsSQL computes min, max, average and distinct counts for column.
func (t TableRef) StatsSQL(column string) string {
	c := quoteIdent(column)
	return fmt.Sprintf(`SELECT MIN(%[1]s)::text, MAX(%[1]s)::text, AVG(%[1]s)::float8, `+
		`COUNT(DISTINCT %[1]s), COUNT(%[1]s) FROM %[2]s WHERE %[1]s IS NOT NULL`, c, t.quoted())
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ColumnInfo is one column of the table schema.
type ColumnInfo struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	MaxLength *int64  `json:"max_length"`
	Nullable  string  `json:"nullable"`
	Default   *string `json:"default"`
}

// ColumnStats are the value statistics of one numeric column.
type ColumnStats struct {
	Column   string   `json:"column"`
	Min      string   `json:"min"`
	Max      string   `json:"max"`
	Avg      *float64 `json:"avg"`
	Distinct int64    `json:"distinct_values"`
	NonNull  int64    `json:"non_null_count"`
}

// Profile is the result of inspecting a table.
type Profile struct {
	Table        string           `json:"table"`
	Columns      []ColumnInfo     `json:"columns"`
	TotalRecords int64            `json:"total_records"`
	SampleData   []map[string]any `json:"sample_data"`

	// Samples holds the fetched sample rows for display.
	Samples *report.Table `json:"-"`
	// ContributionColumns are the columns whose names match a contribution
	// keyword, numeric or not.
	ContributionColumns []string      `json:"contribution_columns"`
	Stats               []ColumnStats `json:"contribution_stats"`
}

// Inspector profiles tables through a store.Source.
type Inspector struct {
	src store.Source
}

// New returns an Inspector reading from src.
func New(src store.Source) *Inspector {
	return &Inspector{src: src}
}

// Inspect profiles ref, fetching up to sampleRows sample rows.
func (in *Inspector) Inspect(ctx context.Context, ref TableRef, sampleRows int) (*Profile, error) {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}

	cols, err := in.src.Query(ctx, ColumnsSQL, ref.Schema, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", ref, err)
	}
	if cols.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, ref)
	}

	p := &Profile{Table: ref.String(), Columns: make([]ColumnInfo, 0, cols.Len())}
	for _, row := range cols.Rows {
		p.Columns = append(p.Columns, columnInfo(row))
	}

	if p.Samples, err = in.src.Query(ctx, ref.SampleSQL(), sampleRows); err != nil {
		return nil, fmt.Errorf("reading sample rows of %s: %w", ref, err)
	}
	for i, row := range p.Samples.Rows {
		if i == jsonSampleRows {
			break
		}
		p.SampleData = append(p.SampleData, sampleRecord(p.Samples.ColumnNames(), row))
	}

	count, err := in.src.Query(ctx, ref.CountSQL())
	if err != nil {
		return nil, fmt.Errorf("counting rows of %s: %w", ref, err)
	}
	if count.Len() > 0 && len(count.Rows[0]) > 0 {
		p.TotalRecords = toInt64(count.Rows[0][0])
	}

	for _, c := range p.Columns {
		if !isContributionColumn(c.Name) {
			continue
		}
		p.ContributionColumns = append(p.ContributionColumns, c.Name)
		if !numericTypes[c.Type] {
			continue
		}
		stats, statErr := in.columnStats(ctx, ref, c.Name)
		if statErr != nil {
			return nil, statErr
		}
		if stats != nil {
			p.Stats = append(p.Stats, *stats)
		}
	}
	return p, nil
}

// columnStats returns nil when the column holds no values.
func (in *Inspector) columnStats(ctx context.Context, ref TableRef, column string) (*ColumnStats, error) {
	t, err := in.src.Query(ctx, ref.StatsSQL(column))
	if err != nil {
		return nil, fmt.Errorf("computing statistics for %s.%s: %w", ref, column, err)
	}
	if t.Len() == 0 || len(t.Rows[0]) < 5 || t.Rows[0][0] == nil {
		return nil, nil //nolint:nilnil // No values is not an error.
	}

	row := t.Rows[0]
	s := &ColumnStats{
		Column:   column,
		Min:      report.FormatValue(row[0], false),
		Max:      report.FormatValue(row[1], false),
		Distinct: toInt64(row[3]),
		NonNull:  toInt64(row[4]),
	}
	if avg, ok := report.ToFloat(row[2]); ok {
		s.Avg = &avg
	}
	return s, nil
}

func isContributionColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range contributionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func columnInfo(row []any) ColumnInfo {
	info := ColumnInfo{}
	if len(row) < 5 {
		return info
	}
	info.Name, _ = row[0].(string)
	info.Type, _ = row[1].(string)
	if row[2] != nil {
		n := toInt64(row[2])
		info.MaxLength = &n
	}
	info.Nullable, _ = row[3].(string)
	if d, ok := row[4].(string); ok {
		info.Default = &d
	}
	return info
}

// sampleRecord converts a sample row for JSON: decimals become numbers and
// timestamps RFC 3339 strings.
func sampleRecord(names []string, row []any) map[string]any {
	rec := make(map[string]any, len(names))
	for i, name := range names {
		switch v := row[i].(type) {
		case report.Decimal:
			if f, err := v.Float64(); err == nil {
				rec[name] = f
			} else {
				rec[name] = string(v)
			}
		case time.Time:
			rec[name] = v.Format(time.RFC3339)
		default:
			rec[name] = v
		}
	}
	return rec
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	}
	if f, ok := report.ToFloat(v); ok {
		return int64(f)
	}
	return 0
}
