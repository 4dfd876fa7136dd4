// Package batch drives large item sets through a caller-supplied processing
// function in adaptively sized, strictly sequential batches.
//
// The Runner keeps batches large enough for throughput but small enough that a
// slow batch cannot stall progress reporting for long. Key features:
//   - Proportional batch resizing from observed per-batch latency
//   - Per-batch failure isolation (a failing batch never aborts the run)
//   - Throttled progress callbacks with guaranteed first and final emissions
//   - Cooperative cancellation via Cancel or the caller's context
//
// Every attempted item ends up in exactly one of Result.Results or
// Result.Errors. Only misuse (a concurrent Run, or Reset mid-run) is reported
// as a returned error.
package batch
