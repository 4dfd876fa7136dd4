// Package report defines the payroll reports payrun can export: the SQL behind
// each report kind, the tabular result shape, and the rules for turning that
// result into CSV cells, file names and console summaries.
//
// # Report kinds
//
//   - payroll: every column of the comprehensive payroll view
//   - contribution-base: social insurance and housing fund bases and rates
//   - categories: employees with their personnel category
//
// Periods are given as YYYY-MM on the command line and matched against the
// period names stored in the database, which use the 2025年06月 form.
package report
