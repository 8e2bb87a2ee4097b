// Package memory keeps the server inside its container memory budget.
//
// [Configure] turns the container limit (MEMORY_LIMIT, usually injected by
// the Kubernetes Downward API) into a Go soft memory limit, reserving a
// share for ffmpeg children and libvips allocations. An explicit GOMEMLIMIT
// environment variable always wins.
//
// [Monitor] samples heap usage on an interval. Once usage crosses the
// critical watermark it pauses thumbnail derivation, forces a collection and
// holds every [Monitor.Wait] caller until usage falls back under the high
// watermark. Uploads keep being stored while paused; only the expensive
// decode and resize step waits.
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	opts.Gate = monitor
//
// GOMEMLIMIT is a soft limit covering the Go heap only. Memory held by
// child processes and cgo is outside it, which is why the default ratio
// leaves room.
package memory
