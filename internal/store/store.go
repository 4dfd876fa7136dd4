// Package store reads payroll data from Postgres. The connection pool is
// opened on first use, so commands that never touch the database never dial
// it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/salarysys/payrun/internal/lazy"
	"github.com/salarysys/payrun/internal/report"
)

// Errors returned by the store.
var (
	ErrPeriodNotFound = errors.New("payroll period not found")
	ErrNoDatabaseURL  = errors.New("no database URL configured")
)

// Source is the read side of the payroll database.
type Source interface {
	// FindPeriod returns the most recent period whose name matches p.
	FindPeriod(ctx context.Context, p report.Period) (report.PeriodInfo, error)
	// Query runs sql and returns every row.
	Query(ctx context.Context, sql string, args ...any) (*report.Table, error)
	Close()
}

// Options configures a PGSource.
type Options struct {
	URL            string
	MaxConns       int
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// PGSource is a Source backed by a pgx connection pool.
type PGSource struct {
	cfg    *pgxpool.Config
	pool   *lazy.Loader[*pgxpool.Pool]
	logger zerolog.Logger
}

var _ Source = (*PGSource)(nil)

// NewPGSource validates the connection string and returns a source that
// connects on first use.
func NewPGSource(opts Options) (*PGSource, error) {
	if opts.URL == "" {
		return nil, ErrNoDatabaseURL
	}

	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns) // #nosec G115
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	s := &PGSource{
		cfg:    cfg,
		logger: opts.Logger.With().Str("component", "store").Logger(),
	}
	s.pool = lazy.New(s.connect)
	return s, nil
}

func (s *PGSource) connect(ctx context.Context) (*pgxpool.Pool, error) {
	start := time.Now()
	s.logger.Debug().
		Str("host", s.cfg.ConnConfig.Host).
		Str("database", s.cfg.ConnConfig.Database).
		Msg("connecting to database")

	if timeout := s.cfg.ConnConfig.ConnectTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s.logger.Debug().Dur("duration", time.Since(start)).Msg("database connected")
	return pool, nil
}

// State reports whether the pool has been opened.
func (s *PGSource) State() lazy.State {
	return s.pool.State()
}

// FindPeriod returns the most recent period whose name contains
// p.DisplayName().
func (s *PGSource) FindPeriod(ctx context.Context, p report.Period) (report.PeriodInfo, error) {
	pool, err := s.pool.Get(ctx)
	if err != nil {
		return report.PeriodInfo{}, err
	}

	var (
		info                report.PeriodInfo
		start, end, payDate pgtype.Date
	)
	err = pool.QueryRow(ctx, report.FindPeriodSQL, "%"+p.DisplayName()+"%").
		Scan(&info.ID, &info.Name, &start, &end, &payDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return report.PeriodInfo{}, fmt.Errorf("%w: %s", ErrPeriodNotFound, p.DisplayName())
	}
	if err != nil {
		return report.PeriodInfo{}, fmt.Errorf("looking up period %s: %w", p.DisplayName(), err)
	}

	info.StartDate = start.Time
	info.EndDate = end.Time
	info.PayDate = payDate.Time
	return info, nil
}

// Query runs sql and collects every row into a table.
func (s *PGSource) Query(ctx context.Context, sql string, args ...any) (*report.Table, error) {
	pool, err := s.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	table := &report.Table{Columns: columnsFromFields(rows.FieldDescriptions())}
	for rows.Next() {
		values, valErr := rows.Values()
		if valErr != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(table.Rows), valErr)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		table.Rows = append(table.Rows, values)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	s.logger.Debug().
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Columns)).
		Dur("duration", time.Since(start)).
		Msg("query complete")
	return table, nil
}

// Close closes the pool if it was opened.
func (s *PGSource) Close() {
	if pool, ok := s.pool.Peek(); ok {
		pool.Close()
		s.pool.Reset()
	}
}

// columnsFromFields maps result fields to table columns. Only the numeric
// type counts as Numeric: integer columns hold ids and counts, which are never
// filtered as empty pay items.
func columnsFromFields(fields []pgconn.FieldDescription) []report.Column {
	cols := make([]report.Column, len(fields))
	for i, f := range fields {
		cols[i] = report.Column{
			Name:    f.Name,
			Numeric: f.DataTypeOID == pgtype.NumericOID,
		}
	}
	return cols
}

// normalizeValue converts pgx decoded values into the cell types report
// understands.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		val, err := x.Value()
		if err != nil {
			return nil
		}
		text, _ := val.(string)
		return report.Decimal(text)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
