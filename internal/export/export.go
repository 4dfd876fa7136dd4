// Package export writes report tables to CSV. Rows are written in adaptive
// batches so a slow destination shrinks batches instead of stalling progress
// output, and a cancelled export stops at a batch boundary.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/salarysys/payrun/internal/batch"
	"github.com/salarysys/payrun/internal/report"
)

// Errors returned by the exporter.
var (
	ErrIncomplete = errors.New("export incomplete")
	ErrCancelled  = errors.New("export cancelled")
	ErrNoRows     = errors.New("report has no rows")
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

// BatchObserver receives per-batch statistics, for example a metrics
// recorder.
type BatchObserver interface {
	Observe(stats batch.Stats)
}

// Options configures an Exporter.
type Options struct {
	Batch    batch.Config
	Progress batch.ProgressCallback
	Observer BatchObserver
	Logger   zerolog.Logger
	// IncludeZeroFields keeps all-zero numeric columns for reports that
	// filter them by default.
	IncludeZeroFields bool
}

// Result describes a finished export.
type Result struct {
	Path      string
	Rows      int
	Written   int
	Failed    int
	Batches   int
	Columns   []string
	Dropped   []string
	Cancelled bool
}

// Exporter writes report tables as CSV.
type Exporter struct {
	opts   Options
	logger zerolog.Logger
}

// New returns an Exporter.
func New(opts Options) *Exporter {
	return &Exporter{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "export").Logger(),
	}
}

// Prepare applies column filtering for kind and returns the table to write
// together with the dropped column names.
func (e *Exporter) Prepare(kind report.Kind, t *report.Table) (*report.Table, []string) {
	if !kind.FiltersZeroFields || e.opts.IncludeZeroFields {
		return t, nil
	}
	return report.DropZeroColumns(t)
}

// WriteFile exports t to path, creating parent directories. The file is
// left in place when the export is incomplete so the written rows can be
// inspected.
func (e *Exporter) WriteFile(ctx context.Context, path string, kind report.Kind, t *report.Table) (Result, error) {
	if t.Len() == 0 {
		return Result{Path: path}, ErrNoRows
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{Path: path}, fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("creating %s: %w", path, err)
	}

	res, err := e.Write(ctx, f, kind, t)
	res.Path = path
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing %s: %w", path, closeErr)
	}
	return res, err
}

// Write exports t to w: a UTF-8 byte order mark, the header row, then every
// row in batches. It returns ErrIncomplete when any batch failed and
// ErrCancelled when ctx ended first.
func (e *Exporter) Write(ctx context.Context, w io.Writer, kind report.Kind, t *report.Table) (Result, error) {
	if t.Len() == 0 {
		return Result{}, ErrNoRows
	}

	table, dropped := e.Prepare(kind, t)
	res := Result{
		Rows:    table.Len(),
		Columns: table.ColumnNames(),
		Dropped: dropped,
	}
	if len(dropped) > 0 {
		e.logger.Debug().Strs("columns", dropped).Msg("dropped all-zero columns")
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return res, fmt.Errorf("writing header: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return res, fmt.Errorf("writing header: %w", err)
	}

	rowIndexes := make([]int, table.Len())
	for i := range rowIndexes {
		rowIndexes[i] = i
	}

	writeBatch := func(ctx context.Context, idx []int) ([]int, error) {
		for _, i := range idx {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := cw.Write(report.FormatRow(kind, table.Columns, table.Rows[i])); err != nil {
				return nil, err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, err
		}
		return idx, nil
	}

	runner := batch.NewRunner[int, int](e.opts.Batch).
		WithProgressCallback(e.opts.Progress).
		WithLogger(e.logger)

	out, err := runner.Run(ctx, rowIndexes, writeBatch, func(o batch.Outcome[int]) {
		res.Batches++
		if !o.Success {
			e.logger.Warn().
				Int("batch", o.Index).
				Int("offset", o.Offset).
				Int("size", o.Size).
				Err(o.Errors[0].Err).
				Msg("batch failed")
		}
		if e.opts.Observer != nil {
			e.opts.Observer.Observe(o.Stats())
		}
	})
	if err != nil {
		return res, err
	}

	res.Written = len(out.Results)
	res.Failed = len(out.Errors)
	res.Cancelled = out.Cancelled

	switch {
	case out.Cancelled:
		return res, fmt.Errorf("%w after %d of %d rows", ErrCancelled, res.Written+res.Failed, res.Rows)
	case res.Failed > 0:
		return res, fmt.Errorf("%w: %d of %d rows failed: %w", ErrIncomplete, res.Failed, res.Rows, out.Errors[0])
	}
	return res, nil
}
