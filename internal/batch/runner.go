package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Common batch runner errors.
var (
	ErrAlreadyRunning = errors.New("batch runner is already running")
	ErrRunning        = errors.New("batch runner cannot be reset while running")
	ErrNilProcess     = errors.New("batch process function cannot be nil")
	ErrResultCount    = errors.New("batch returned a different number of results than items")
	ErrBatchPanic     = errors.New("batch process function panicked")
)

// ProcessFunc processes one batch. It must return exactly one result per
// item, in item order. A returned error fails the whole batch. ctx is
// cancelled when the runner is cancelled; well-behaved functions check it.
type ProcessFunc[T, R any] func(ctx context.Context, batch []T) ([]R, error)

// OnBatchFunc is an optional callback invoked after every batch, whether it
// succeeded or failed.
type OnBatchFunc[R any] func(outcome Outcome[R])

// ItemError records a failed item by its zero-based index in the run input.
type ItemError struct {
	Index int
	Err   error
}

// Error implements error.
func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Unwrap returns the batch error that failed the item.
func (e ItemError) Unwrap() error {
	return e.Err
}

// Outcome describes one completed batch.
type Outcome[R any] struct {
	// Index is the zero-based sequence number of the batch within the run.
	Index int

	// Offset is the input index of the first item in the batch.
	Offset int

	// Size is the number of items in the batch.
	Size int

	// Success is false when the process function failed the batch.
	Success bool

	// Results holds one result per item when Success is true.
	Results []R

	// Errors holds one entry per item when Success is false.
	Errors []ItemError

	// Elapsed is how long the process function took.
	Elapsed time.Duration

	// NextBatchSize is the adjusted size the following batch will use.
	NextBatchSize int
}

// Stats returns the type-independent figures of the outcome.
func (o Outcome[R]) Stats() Stats {
	return Stats{
		Index:         o.Index,
		Size:          o.Size,
		Succeeded:     len(o.Results),
		Failed:        len(o.Errors),
		Elapsed:       o.Elapsed,
		NextBatchSize: o.NextBatchSize,
	}
}

// Stats is the non-generic summary of a batch, for observers such as metrics
// recorders that do not care about the result type.
type Stats struct {
	Index         int
	Size          int
	Succeeded     int
	Failed        int
	Elapsed       time.Duration
	NextBatchSize int
}

// Result aggregates a whole run.
type Result[R any] struct {
	// Results holds successful outputs in input order.
	Results []R

	// Errors holds every failed item with its input index.
	Errors []ItemError

	// Cancelled is true when the run stopped before dispatching every item.
	Cancelled bool
}

// Attempted returns the number of items dispatched during the run.
func (r Result[R]) Attempted() int {
	return len(r.Results) + len(r.Errors)
}

// runState is owned by the Runner and mutated only under its lock.
type runState struct {
	batchSize int
	processed int
	total     int
	batches   int
	startedAt time.Time
	running   bool
	cancelled bool
	// finished is set once a run has ended; a Cancel after that is a no-op
	// until Reset.
	finished bool
}

// Runner drives items through a ProcessFunc in adaptively sized batches.
// Batches run strictly one at a time. A Runner must not be used for
// overlapping runs; construct one Runner per concurrent job.
type Runner[T, R any] struct {
	cfg        Config
	onProgress ProgressCallback
	logger     zerolog.Logger
	now        func() time.Time

	// mu protects state and cancelRun; Cancel and Progress may be called
	// from any goroutine.
	mu        sync.Mutex
	state     runState
	cancelRun context.CancelFunc
}

// NewRunner creates a runner with the given configuration. Invalid values
// are normalised rather than rejected; see Config.Normalize.
func NewRunner[T, R any](cfg Config) *Runner[T, R] {
	cfg = cfg.Normalize()
	r := &Runner[T, R]{
		cfg:    cfg,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	r.state = r.initialState()
	return r
}

// NewRunnerWithDefaults creates a runner with DefaultConfig.
func NewRunnerWithDefaults[T, R any]() *Runner[T, R] {
	return NewRunner[T, R](DefaultConfig())
}

// WithProgressCallback sets a progress callback for the runner.
func (r *Runner[T, R]) WithProgressCallback(callback ProgressCallback) *Runner[T, R] {
	r.onProgress = callback
	return r
}

// WithLogger sets the logger used for per-batch debug events.
func (r *Runner[T, R]) WithLogger(logger zerolog.Logger) *Runner[T, R] {
	r.logger = logger
	return r
}

// WithClock replaces the time source used for latency measurement and
// progress throttling.
func (r *Runner[T, R]) WithClock(now func() time.Time) *Runner[T, R] {
	if now != nil {
		r.now = now
	}
	return r
}

// Config returns the normalised configuration.
func (r *Runner[T, R]) Config() Config {
	return r.cfg
}

// Run processes items in sequential batches until every item has been
// dispatched or the run is cancelled, either through Cancel or ctx.
// Batch failures are collected in the result and never abort the run.
// It returns ErrAlreadyRunning if another Run is in progress.
func (r *Runner[T, R]) Run(
	ctx context.Context,
	items []T,
	process ProcessFunc[T, R],
	onBatch OnBatchFunc[R],
) (Result[R], error) {
	if process == nil {
		return Result[R]{}, ErrNilProcess
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.begin(len(items), cancel); err != nil {
		return Result[R]{}, err
	}
	defer r.finish()

	log := r.logger.With().
		Str("run_id", ulid.Make().String()).
		Int("total", len(items)).
		Logger()
	log.Debug().Int("batch_size", r.Progress().CurrentBatchSize).Msg("batch run started")

	var result Result[R]
	throttle := newProgressThrottle(r.cfg.ProgressInterval)

	for seq := 0; ; seq++ {
		offset, size := r.nextSlice()
		if size == 0 {
			break
		}
		if runCtx.Err() != nil {
			result.Cancelled = true
			break
		}

		// Full slice expression so appends inside process cannot touch items.
		batch := items[offset : offset+size : offset+size]
		outcome := r.runBatch(runCtx, seq, offset, batch, process)
		result.Results = append(result.Results, outcome.Results...)
		result.Errors = append(result.Errors, outcome.Errors...)

		progress := r.advance(&outcome)

		log.Debug().
			Int("batch", seq).
			Int("size", outcome.Size).
			Bool("success", outcome.Success).
			Int64("elapsed_ms", outcome.Elapsed.Milliseconds()).
			Int("next_size", outcome.NextBatchSize).
			Msg("batch completed")

		if onBatch != nil {
			onBatch(outcome)
		}
		r.emit(throttle, progress, progress.IsComplete())

		if progress.IsComplete() {
			break
		}
		if (seq+1)%r.cfg.YieldEvery == 0 {
			runtime.Gosched()
		}
	}

	if result.Cancelled {
		r.emit(throttle, r.Progress(), true)
	}

	log.Debug().
		Int("succeeded", len(result.Results)).
		Int("failed", len(result.Errors)).
		Bool("cancelled", result.Cancelled).
		Msg("batch run finished")

	return result, nil
}

// Cancel stops the current run after the in-flight batch returns and
// cancels the context passed to that batch. On a runner that has not run
// since construction or Reset, it makes the next Run stop before its first
// batch. After a run has finished it has no effect. Cancel is idempotent.
func (r *Runner[T, R]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.running && r.state.finished {
		return
	}
	r.state.cancelled = true
	if r.cancelRun != nil {
		r.cancelRun()
	}
}

// Reset restores the construction-time state: batch size back to the
// initial size, counts to zero, flags cleared. It returns ErrRunning and
// changes nothing when called during a run.
func (r *Runner[T, R]) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.running {
		return ErrRunning
	}
	r.state = r.initialState()
	return nil
}

// Progress returns a snapshot of the current state.
func (r *Runner[T, R]) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progressLocked()
}

// IsRunning reports whether a run is in progress.
func (r *Runner[T, R]) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.running
}

func (r *Runner[T, R]) initialState() runState {
	return runState{batchSize: r.cfg.InitialBatchSize}
}

// begin marks the runner as running for a run of total items.
func (r *Runner[T, R]) begin(total int, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.running {
		return ErrAlreadyRunning
	}

	r.state.running = true
	r.state.processed = 0
	r.state.total = total
	r.state.batches = 0
	r.state.startedAt = r.now()
	r.cancelRun = cancel
	if r.state.cancelled {
		cancel()
	}
	return nil
}

func (r *Runner[T, R]) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.running = false
	r.state.cancelled = false
	r.state.finished = true
	r.cancelRun = nil
}

// nextSlice returns the offset and length of the next batch.
func (r *Runner[T, R]) nextSlice() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	offset := r.state.processed
	return offset, min(r.state.batchSize, r.state.total-offset)
}

// runBatch invokes process for one batch and converts its outcome.
func (r *Runner[T, R]) runBatch(
	ctx context.Context,
	seq, offset int,
	batch []T,
	process ProcessFunc[T, R],
) Outcome[R] {
	outcome := Outcome[R]{Index: seq, Offset: offset, Size: len(batch)}

	started := r.now()
	results, err := invoke(ctx, batch, process)
	outcome.Elapsed = r.now().Sub(started)

	if err == nil && len(results) != len(batch) {
		err = fmt.Errorf("%w: got %d for %d items", ErrResultCount, len(results), len(batch))
	}

	if err != nil {
		outcome.Errors = make([]ItemError, len(batch))
		for i := range batch {
			outcome.Errors[i] = ItemError{Index: offset + i, Err: err}
		}
		return outcome
	}

	outcome.Success = true
	outcome.Results = results
	return outcome
}

// invoke calls process, turning a panic into a batch error.
func invoke[T, R any](ctx context.Context, batch []T, process ProcessFunc[T, R]) (results []R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			results = nil
			err = fmt.Errorf("%w: %v", ErrBatchPanic, rec)
		}
	}()
	return process(ctx, batch)
}

// advance records a completed batch and resizes the next one.
func (r *Runner[T, R]) advance(outcome *Outcome[R]) Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.processed += outcome.Size
	r.state.batches++
	r.state.batchSize = r.cfg.adjust(r.state.batchSize, outcome.Elapsed, outcome.Success)
	outcome.NextBatchSize = r.state.batchSize

	return r.progressLocked()
}

// emit forwards progress to the callback if the throttle allows it.
func (r *Runner[T, R]) emit(throttle *progressThrottle, progress Progress, final bool) {
	if r.onProgress == nil || progress.Batches == 0 {
		return
	}
	if !throttle.allow(r.now(), progress.Processed, final) {
		return
	}
	r.onProgress(progress)
}

func (r *Runner[T, R]) progressLocked() Progress {
	var elapsed time.Duration
	if !r.state.startedAt.IsZero() {
		elapsed = r.now().Sub(r.state.startedAt)
	}

	return Progress{
		Processed:        r.state.processed,
		Total:            r.state.total,
		Batches:          r.state.batches,
		Percentage:       percentage(r.state.processed, r.state.total),
		CurrentBatchSize: r.state.batchSize,
		Elapsed:          elapsed,
	}
}
