// Package lazy provides a memoized asynchronous factory with an explicit
// lifecycle, used to defer expensive initialisation such as opening a
// database pool until the first caller needs it.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a Loader.
type State int

// Loader states.
const (
	NotStarted State = iota
	Loading
	Ready
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNilLoadFunc is returned by Get when the Loader has no load function.
var ErrNilLoadFunc = errors.New("lazy: load function cannot be nil")

// loadKey is the single singleflight key; a Loader loads exactly one value.
const loadKey = "value"

// LoadFunc produces the value. The context it receives is detached from any
// single caller's cancellation, so one impatient caller cannot abort a load
// other callers are waiting on.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader memoizes the result of a LoadFunc. Concurrent Get calls during a
// load share the one in-flight call. A failed load is remembered until Reset.
type Loader[T any] struct {
	load  LoadFunc[T]
	group singleflight.Group

	mu    sync.Mutex
	state State
	value T
	err   error
}

// New creates a Loader for load. Nothing runs until the first Get.
func New[T any](load LoadFunc[T]) *Loader[T] {
	return &Loader[T]{load: load}
}

// Get returns the loaded value, starting the load if needed. If ctx ends
// before the load finishes, Get returns ctx.Err() and the load keeps running
// for the remaining waiters.
func (l *Loader[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if l.load == nil {
		return zero, ErrNilLoadFunc
	}

	l.mu.Lock()
	switch l.state {
	case Ready:
		v := l.value
		l.mu.Unlock()
		return v, nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		return zero, err
	case NotStarted, Loading:
		l.state = Loading
	}
	l.mu.Unlock()

	ch := l.group.DoChan(loadKey, func() (any, error) {
		return l.run(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// run performs the load and records its outcome. A caller that arrives just
// after a previous load finished must not load twice, so the state is
// rechecked first.
func (l *Loader[T]) run(ctx context.Context) (T, error) {
	l.mu.Lock()
	switch l.state {
	case Ready:
		v := l.value
		l.mu.Unlock()
		return v, nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		var zero T
		return zero, err
	case NotStarted, Loading:
	}
	l.mu.Unlock()

	v, err := l.load(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = Failed
		l.err = err
		return v, err
	}
	l.state = Ready
	l.value = v
	return v, nil
}

// State returns the current lifecycle state.
func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Peek returns the value without triggering a load. ok is false unless the
// loader is Ready.
func (l *Loader[T]) Peek() (value T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Ready {
		return value, false
	}
	return l.value, true
}

// Reset discards a Ready value or a Failed error so the next Get loads
// again. It returns false and does nothing while a load is in flight.
func (l *Loader[T]) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Loading {
		return false
	}

	var zero T
	l.state = NotStarted
	l.value = zero
	l.err = nil
	return true
}
