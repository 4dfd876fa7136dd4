package batch

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress is an immutable snapshot of a run's progress.
type Progress struct {
	// Processed is the number of items dispatched so far, successfully or not.
	Processed int

	// Total is the number of items in the run.
	Total int

	// Batches is the number of batches completed so far.
	Batches int

	// Percentage is round(100 * Processed / Total), or 0 when Total is 0.
	Percentage int

	// CurrentBatchSize is the size the next batch will use.
	CurrentBatchSize int

	// Elapsed is the time since the run started.
	Elapsed time.Duration
}

// IsComplete returns true if every item has been dispatched.
func (p Progress) IsComplete() bool {
	return p.Processed >= p.Total
}

// Remaining returns the number of items not yet dispatched.
func (p Progress) Remaining() int {
	return max(p.Total-p.Processed, 0)
}

// ItemsPerSecond returns the dispatch rate, or 0 before any time has elapsed.
func (p Progress) ItemsPerSecond() float64 {
	secs := p.Elapsed.Seconds()
	if secs == 0 {
		return 0
	}
	return float64(p.Processed) / secs
}

// percentage computes the rounded completion percentage.
func percentage(processed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(processed) * percentMultiplier / float64(total)))
}

// ProgressCallback receives progress snapshots. It is called on the goroutine
// running the batches, so it should return quickly.
type ProgressCallback func(progress Progress)

// progressThrottle gates progress callbacks to at most one per interval,
// except for the forced first and final emissions of a run.
type progressThrottle struct {
	limiter       *rate.Limiter
	emitted       bool
	lastProcessed int
}

// newProgressThrottle creates a throttle for one run. A zero interval allows
// every emission.
func newProgressThrottle(interval time.Duration) *progressThrottle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &progressThrottle{limiter: rate.NewLimiter(limit, 1)}
}

// allow reports whether a snapshot taken at now should be emitted. final
// marks the last snapshot of the run, which is never suppressed.
func (t *progressThrottle) allow(now time.Time, processed int, final bool) bool {
	// Consume a token even for forced emissions so the interval restarts.
	allowed := t.limiter.AllowN(now, 1)
	if t.emitted && !allowed && !final {
		return false
	}
	if final && t.emitted && t.lastProcessed == processed {
		return false
	}

	t.emitted = true
	t.lastProcessed = processed
	return true
}
