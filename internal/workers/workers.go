package workers

import (
	"runtime"
)

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks such as image decoding and resizing
//   - 2.0 for I/O-bound tasks such as streaming uploads to disk
//
// A positive override (INGEST_WORKERS) replaces the computed value.
// The limit caps the result; use 0 for no limit.
func Count(multiplier float64, override, limit int) int {
	workers := override
	if workers <= 0 {
		workers = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(override, limit int) int {
	return Count(1.0, override, limit)
}

// ForIO returns the worker count for I/O-bound tasks (2 per CPU).
func ForIO(override, limit int) int {
	return Count(2.0, override, limit)
}
