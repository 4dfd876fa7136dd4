package batch

import (
	"math"
	"time"
)

// Default adaptive batching configuration.
const (
	// DefaultInitialBatchSize is the batch size used for the first batch of a run.
	DefaultInitialBatchSize = 50

	// DefaultMinBatchSize is the lower clamp bound for adaptive resizing.
	DefaultMinBatchSize = 10

	// DefaultMaxBatchSize is the upper clamp bound for adaptive resizing.
	DefaultMaxBatchSize = 200

	// DefaultProgressInterval is the minimum spacing between progress callbacks.
	DefaultProgressInterval = 100 * time.Millisecond

	// DefaultLatencyTarget is the per-batch duration treated as ideal.
	DefaultLatencyTarget = time.Second

	// DefaultGrowFactor is the proportional growth applied after a fast batch.
	DefaultGrowFactor = 0.2

	// DefaultShrinkFactor is the proportional shrink applied after a slow or failed batch.
	DefaultShrinkFactor = 0.2

	// DefaultYieldEvery is the number of batches between scheduler yields.
	DefaultYieldEvery = 5

	// MaxGrowFactor caps GrowFactor; larger values are clamped to it.
	MaxGrowFactor = 10.0
)

// Config holds the tunable parameters of a Runner. It is copied at
// construction and never changes afterwards.
type Config struct {
	// InitialBatchSize is the starting batch size. It is clamped into
	// [MinBatchSize, MaxBatchSize].
	InitialBatchSize int

	// MinBatchSize and MaxBatchSize bound every adjustment.
	MinBatchSize int
	MaxBatchSize int

	// ProgressInterval is the minimum wall-clock spacing between progress
	// callbacks. Zero disables throttling.
	ProgressInterval time.Duration

	// LatencyTarget is the per-batch processing duration the resizing
	// heuristic aims for. Batches finishing in under half of it grow the
	// batch size; batches taking longer than it shrink the batch size.
	LatencyTarget time.Duration

	// GrowFactor and ShrinkFactor are the proportional adjustments (0.2 = 20%).
	GrowFactor   float64
	ShrinkFactor float64

	// YieldEvery is the number of batches between explicit scheduler yields.
	YieldEvery int
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		InitialBatchSize: DefaultInitialBatchSize,
		MinBatchSize:     DefaultMinBatchSize,
		MaxBatchSize:     DefaultMaxBatchSize,
		ProgressInterval: DefaultProgressInterval,
		LatencyTarget:    DefaultLatencyTarget,
		GrowFactor:       DefaultGrowFactor,
		ShrinkFactor:     DefaultShrinkFactor,
		YieldEvery:       DefaultYieldEvery,
	}
}

// Normalize returns a copy of c with unset fields replaced by defaults and
// inconsistent bounds resolved. When MinBatchSize exceeds MaxBatchSize the
// two are swapped. The result always satisfies
// MinBatchSize <= InitialBatchSize <= MaxBatchSize.
func (c Config) Normalize() Config {
	def := DefaultConfig()

	if c.MinBatchSize <= 0 {
		c.MinBatchSize = def.MinBatchSize
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.MinBatchSize > c.MaxBatchSize {
		c.MinBatchSize, c.MaxBatchSize = c.MaxBatchSize, c.MinBatchSize
	}
	if c.InitialBatchSize <= 0 {
		c.InitialBatchSize = def.InitialBatchSize
	}
	c.InitialBatchSize = c.clamp(c.InitialBatchSize)

	if c.ProgressInterval < 0 {
		c.ProgressInterval = 0
	}
	if c.LatencyTarget <= 0 {
		c.LatencyTarget = def.LatencyTarget
	}
	if c.GrowFactor <= 0 || math.IsNaN(c.GrowFactor) {
		c.GrowFactor = def.GrowFactor
	}
	c.GrowFactor = min(c.GrowFactor, MaxGrowFactor)
	if c.ShrinkFactor <= 0 || c.ShrinkFactor >= 1 {
		c.ShrinkFactor = def.ShrinkFactor
	}
	if c.YieldEvery <= 0 {
		c.YieldEvery = def.YieldEvery
	}

	return c
}

// clamp bounds size to [MinBatchSize, MaxBatchSize].
func (c Config) clamp(size int) int {
	return max(c.MinBatchSize, min(size, c.MaxBatchSize))
}

// adjust computes the batch size to use after a batch of the given size took
// elapsed to finish. Failed batches shrink like slow ones and never grow.
// Each step moves at least one item so the size saturates at a bound.
func (c Config) adjust(size int, elapsed time.Duration, success bool) int {
	next := size

	switch {
	case !success || elapsed > c.LatencyTarget:
		next = int(math.Round(float64(size) * (1 - c.ShrinkFactor)))
		if next >= size {
			next = size - 1
		}
	case elapsed < c.LatencyTarget/2:
		grown := math.Round(float64(size) * (1 + c.GrowFactor))
		if grown >= float64(c.MaxBatchSize) {
			return c.MaxBatchSize
		}
		next = int(grown)
		if next <= size {
			next = size + 1
		}
	}

	return c.clamp(next)
}
