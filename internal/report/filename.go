package report

import (
	"fmt"
	"time"
)

// Filename suffixes for the payroll report.
const (
	SuffixEffectiveFields = "_有效字段"
	SuffixAllFields       = "_完整字段"
)

// OutputFilename returns the default CSV name for a report, such as
// 工资明细_有效字段_2025-06_20250701_101500.csv.
func OutputFilename(kind Kind, period Period, suffix string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s_%s.csv", kind.FilenamePrefix, suffix, period, now.Format("20060102_150405"))
}

// DefaultSuffix returns the filename suffix for kind. Only reports that filter
// zero fields carry one.
func DefaultSuffix(kind Kind, includeZeroFields bool) string {
	if !kind.FiltersZeroFields {
		return ""
	}
	if includeZeroFields {
		return SuffixAllFields
	}
	return SuffixEffectiveFields
}
