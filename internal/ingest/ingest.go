// Package ingest turns a batch of uploaded files into stored, normalized and
// thumbnailed assets. Every item is handled independently: a failing item is
// reported in its result and never aborts or rolls back its siblings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/sanitize"
	"media-gallery/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxNameAttempts bounds stored-name regeneration after a collision.
const maxNameAttempts = 5

// Item is one uploaded file. Open may be called more than once.
type Item struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Result is the outcome for one Item. Filename is the stored name on success
// and the client-supplied name on a type rejection.
type Result struct {
	Status    string          `json:"status"`
	Filename  string          `json:"filename,omitempty"`
	Type      mediatypes.Kind `json:"type,omitempty"`
	Message   string          `json:"message,omitempty"`
	Thumbnail *bool           `json:"thumbnail,omitempty"`
}

// Deriver normalizes and thumbnails a stored asset.
type Deriver interface {
	Normalize(ctx context.Context, storedName string) (bool, error)
	Derive(ctx context.Context, storedName string, kind mediatypes.Kind) (string, error)
}

// Namer generates stored names from sanitized names.
type Namer interface {
	StoredName(safeName string) string
}

// Invalidator is told when the asset set changes.
type Invalidator interface {
	Invalidate(source string)
}

// Pipeline runs sanitize, persist, normalize and derive for each item.
type Pipeline struct {
	layout    *storage.Layout
	deriver   Deriver
	names     Namer
	catalog   Invalidator
	workers   int
	normalize func(ctx context.Context, storedName string) (bool, error)
}

// New creates a Pipeline. workers bounds how many items of one batch are
// processed at once; catalog may be nil.
func New(layout *storage.Layout, deriver Deriver, names Namer, catalog Invalidator, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		layout:    layout,
		deriver:   deriver,
		names:     names,
		catalog:   catalog,
		workers:   workers,
		normalize: deriver.Normalize,
	}
}

// Ingest processes items and returns exactly one result per item, in input
// order.
func (p *Pipeline) Ingest(ctx context.Context, items []Item) []Result {
	start := time.Now()
	results := make([]Result, len(items))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, item := range items {
		g.Go(func() error {
			results[i] = p.ingestOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	stored := 0
	for _, r := range results {
		if r.Status == StatusSuccess {
			stored++
		}
	}
	if stored > 0 && p.catalog != nil {
		p.catalog.Invalidate("upload")
	}

	metrics.UploadBatchSize.Observe(float64(len(items)))
	metrics.UploadBatchDuration.Observe(time.Since(start).Seconds())
	logging.Info("Ingested %d of %d items in %v", stored, len(items), time.Since(start))

	return results
}

func (p *Pipeline) ingestOne(ctx context.Context, item Item) Result {
	if strings.TrimSpace(item.Filename) == "" {
		metrics.UploadItemsTotal.WithLabelValues("unknown", StatusError).Inc()
		return Result{Status: StatusError, Message: "Empty filename"}
	}

	safe, kind, err := sanitize.Validate(item.Filename)
	if err != nil {
		metrics.UploadItemsTotal.WithLabelValues("unknown", StatusError).Inc()
		msg := "Invalid file type"
		if errors.Is(err, sanitize.ErrInvalidName) {
			msg = "Invalid filename"
		}
		logging.Warn("Rejected upload %q: %v", item.Filename, err)
		return Result{Status: StatusError, Filename: item.Filename, Message: msg}
	}

	stored, err := p.persist(safe, item)
	if err != nil {
		metrics.UploadItemsTotal.WithLabelValues(string(kind), StatusError).Inc()
		logging.Error("Failed to store %s: %v", safe, err)
		return Result{Status: StatusError, Filename: item.Filename, Message: "Failed to store file"}
	}

	if kind == mediatypes.KindImage {
		if _, err := p.normalize(ctx, stored); err != nil {
			logging.Warn("Orientation left as uploaded for %s: %v", stored, err)
		}
	}

	thumbnail := true
	if _, err := p.deriver.Derive(ctx, stored, kind); err != nil {
		thumbnail = false
		logging.Warn("No thumbnail for %s: %v", stored, err)
	}

	metrics.UploadItemsTotal.WithLabelValues(string(kind), StatusSuccess).Inc()
	return Result{Status: StatusSuccess, Filename: stored, Type: kind, Thumbnail: &thumbnail}
}

// persist writes the item under a fresh stored name, regenerating the name if
// it is already taken.
func (p *Pipeline) persist(safe string, item Item) (string, error) {
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		stored := p.names.StoredName(safe)

		n, err := p.save(stored, item)
		if err == nil {
			metrics.UploadBytesTotal.Add(float64(n))
			logging.Debug("Stored %s (%d bytes)", stored, n)
			return stored, nil
		}
		if !errors.Is(err, storage.ErrExists) {
			return "", err
		}
		metrics.UploadNameCollisions.Inc()
		logging.Debug("Stored name %s taken, regenerating (attempt %d)", stored, attempt)
	}
	return "", fmt.Errorf("%w: no free name for %s after %d attempts", storage.ErrPersistence, safe, maxNameAttempts)
}

func (p *Pipeline) save(stored string, item Item) (int64, error) {
	body, err := item.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open upload: %v", storage.ErrPersistence, err)
	}
	defer body.Close()
	return p.layout.Save(stored, body)
}
