// Package storetest provides an in-memory store.Source for tests.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/salarysys/payrun/internal/report"
	"github.com/salarysys/payrun/internal/store"
)

// Query is one recorded call to Source.Query.
type Query struct {
	SQL  string
	Args []any
}

// Source serves canned periods and tables keyed by SQL text.
type Source struct {
	// Periods maps YYYY-MM to the period returned by FindPeriod.
	Periods map[string]report.PeriodInfo
	// Tables maps SQL text to the table returned by Query.
	Tables map[string]*report.Table
	// Err, when set, is returned by every call.
	Err error

	mu      sync.Mutex
	queries []Query
	closed  bool
}

var _ store.Source = (*Source)(nil)

// New returns an empty Source.
func New() *Source {
	return &Source{
		Periods: make(map[string]report.PeriodInfo),
		Tables:  make(map[string]*report.Table),
	}
}

// FindPeriod implements store.Source.
func (s *Source) FindPeriod(_ context.Context, p report.Period) (report.PeriodInfo, error) {
	if s.Err != nil {
		return report.PeriodInfo{}, s.Err
	}
	info, ok := s.Periods[p.String()]
	if !ok {
		return report.PeriodInfo{}, fmt.Errorf("%w: %s", store.ErrPeriodNotFound, p.DisplayName())
	}
	return info, nil
}

// Query implements store.Source.
func (s *Source) Query(ctx context.Context, sql string, args ...any) (*report.Table, error) {
	s.mu.Lock()
	s.queries = append(s.queries, Query{SQL: sql, Args: args})
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.Tables[sql]
	if !ok {
		return &report.Table{}, nil
	}
	return t, nil
}

// Close implements store.Source.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Queries returns the recorded queries in call order.
func (s *Source) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
