package report

import (
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// Date layouts used for CSV cells.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Decimal is an exact numeric value in its database text form, such as
// "1234.50".
type Decimal string

// Float64 converts d to a float64.
func (d Decimal) Float64() (float64, error) {
	return strconv.ParseFloat(string(d), 64)
}

// IsZero reports whether d is numerically zero. Unparseable text is not zero.
func (d Decimal) IsZero() bool {
	r, ok := new(big.Rat).SetString(string(d))
	return ok && r.Sign() == 0
}

// Column is one result column.
type Column struct {
	Name string
	// Numeric is set for columns of a numeric database type.
	Numeric bool
}

// Table is a query result. Rows hold nil, string, bool, int64, float64,
// Decimal or time.Time values in column order.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// DropZeroColumns returns a copy of t without the numeric columns whose values
// are nil or zero in every row, along with the names of the dropped columns.
// Non-numeric columns are always kept. A table without rows is returned
// unchanged.
func DropZeroColumns(t *Table) (*Table, []string) {
	if t.Len() == 0 {
		return t, nil
	}

	keep := make([]int, 0, len(t.Columns))
	var dropped []string
	for i, c := range t.Columns {
		if c.Numeric && columnAllZero(t.Rows, i) {
			dropped = append(dropped, c.Name)
			continue
		}
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return t, nil
	}

	out := &Table{
		Columns: make([]Column, len(keep)),
		Rows:    make([][]any, len(t.Rows)),
	}
	for j, i := range keep {
		out.Columns[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		projected := make([]any, len(keep))
		for j, i := range keep {
			projected[j] = row[i]
		}
		out.Rows[r] = projected
	}
	return out, dropped
}

func columnAllZero(rows [][]any, col int) bool {
	for _, row := range rows {
		if !IsZeroValue(row[col]) {
			return false
		}
	}
	return true
}

// IsZeroValue reports whether v is nil or a numeric zero.
func IsZeroValue(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case Decimal:
		return n.IsZero()
	case int64:
		return n == 0
	case int32:
		return n == 0
	case int16:
		return n == 0
	case int:
		return n == 0
	case float64:
		return n == 0
	case float32:
		return n == 0
	default:
		return false
	}
}

// FormatValue renders v as a CSV cell. Times are rendered as dates, or with
// the time of day when withTime is set.
func FormatValue(v any, withTime bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Decimal:
		return string(x)
	case time.Time:
		if withTime {
			return x.Format(DateTimeLayout)
		}
		return x.Format(DateLayout)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatRow renders every cell of row for kind.
func FormatRow(kind Kind, columns []Column, row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = FormatValue(v, kind.IsTimestamp(columns[i].Name))
	}
	return out
}

// ToFloat converts a numeric cell to float64. ok is false for nil and
// non-numeric values.
func ToFloat(v any) (f float64, ok bool) {
	switch x := v.(type) {
	case Decimal:
		f, err := x.Float64()
		return f, err == nil
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
