package report

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned when a period is not in YYYY-MM form.
var ErrInvalidPeriod = errors.New("period must be in YYYY-MM form, for example 2025-06")

const periodLayout = "2006-01"

// Period is a payroll month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a YYYY-MM period.
func ParsePeriod(s string) (Period, error) {
	if len(s) != len(periodLayout) {
		return Period{}, fmt.Errorf("%w: got %q", ErrInvalidPeriod, s)
	}
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: got %q", ErrInvalidPeriod, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the period in YYYY-MM form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DisplayName returns the name used for periods in the database.
func (p Period) DisplayName() string {
	return fmt.Sprintf("%04d年%02d月", p.Year, int(p.Month))
}

// PeriodInfo is a payroll period row.
type PeriodInfo struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	PayDate   time.Time
}
