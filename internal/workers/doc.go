/*
Package workers sizes the gallery's worker pools.

In a container the host CPU count from runtime.NumCPU can be far larger than
the cgroup limit. GOMAXPROCS follows the limit, so pool sizes are derived
from it:

	// image decoding, resizing and ffmpeg frame extraction
	n := workers.ForCPU(cfg.IngestWorkers, 8)

	// streaming multipart parts to disk
	n := workers.ForIO(cfg.IngestWorkers, 16)

A positive override, normally INGEST_WORKERS, replaces the computed value
and is still capped by the limit. A limit of 0 means no cap.

The functions only read GOMAXPROCS and are safe for concurrent use.
*/
package workers
