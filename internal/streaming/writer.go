package streaming

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"media-gallery/internal/logging"
)

var (
	// ErrWriteTimeout means the client stopped reading for longer than
	// WriteTimeout, or the stream ran past MaxDuration.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context ended before the stream did.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamClosed is returned by writes after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// Config bounds a streamed response.
type Config struct {
	// WriteTimeout is the longest a single chunk may take to reach the client.
	WriteTimeout time.Duration
	// MaxDuration caps the whole stream. Zero means unlimited.
	MaxDuration time.Duration
	// ChunkSize splits large writes so each one gets a fresh deadline and
	// a flush. Zero writes as received.
	ChunkSize int
	// OnProgress, when set, is called roughly once per mebibyte.
	OnProgress func(bytesWritten int64, elapsed time.Duration)
}

// DefaultConfig returns the limits used for archive downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

const progressStep = 1 << 20

// TimeoutWriter is an io.Writer over an http.ResponseWriter that refuses to
// block forever on a stalled client. The server runs without a global
// WriteTimeout so long downloads are possible; this writer moves the
// connection's write deadline forward before every chunk instead.
type TimeoutWriter struct {
	ctx    context.Context
	w      http.ResponseWriter
	rc     *http.ResponseController
	config Config
	start  time.Time

	mu        sync.Mutex
	written   int64
	nextTick  int64
	closed    bool
	deadlines bool
}

// NewTimeoutWriter wraps w. ctx is normally the request context.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	tw := &TimeoutWriter{
		ctx:       ctx,
		w:         w,
		rc:        http.NewResponseController(w),
		config:    config,
		start:     time.Now(),
		nextTick:  progressStep,
		deadlines: config.WriteTimeout > 0,
	}
	return tw
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	total := 0
	for len(p) > 0 {
		if err := tw.check(); err != nil {
			return total, err
		}

		chunk := p
		if tw.config.ChunkSize > 0 && len(chunk) > tw.config.ChunkSize {
			chunk = chunk[:tw.config.ChunkSize]
		}

		n, err := tw.writeChunk(chunk)
		total += n
		if err != nil {
			return total, err
		}
		p = p[len(chunk):]
	}
	return total, nil
}

func (tw *TimeoutWriter) check() error {
	if tw.closed {
		return ErrStreamClosed
	}
	if tw.ctx.Err() != nil {
		return ErrClientGone
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
		return ErrWriteTimeout
	}
	return nil
}

func (tw *TimeoutWriter) writeChunk(chunk []byte) (int, error) {
	if tw.deadlines {
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil {
			// Recorders and some wrappers cannot carry deadlines.
			logging.Debug("Write deadlines unsupported, streaming without them: %v", err)
			tw.deadlines = false
		}
	}

	n, err := tw.w.Write(chunk)
	tw.written += int64(n)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrWriteTimeout
		}
		if tw.ctx.Err() != nil {
			return n, ErrClientGone
		}
		return n, err
	}

	if tw.config.ChunkSize > 0 {
		// Flush errors resurface on the next write.
		_ = tw.rc.Flush()
	}

	if tw.config.OnProgress != nil && tw.written >= tw.nextTick {
		tw.config.OnProgress(tw.written, time.Since(tw.start))
		for tw.nextTick <= tw.written {
			tw.nextTick += progressStep
		}
	}
	return n, nil
}

// Close stops further writes and clears the connection deadline. It is
// safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true
	if !tw.deadlines {
		return nil
	}
	if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Stats returns the bytes written so far and the time since creation.
func (tw *TimeoutWriter) Stats() (int64, time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written, time.Since(tw.start)
}
