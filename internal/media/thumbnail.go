package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/storage"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // content sniffing for mislabelled uploads
	"golang.org/x/sync/semaphore"
)

// ErrDerivation marks a failed thumbnail derivation. The asset itself is
// unaffected.
var ErrDerivation = errors.New("thumbnail derivation failed")

const (
	// DefaultMaxDimension bounds both sides of a thumbnail.
	DefaultMaxDimension = 800
	// DefaultQuality is the JPEG quality of thumbnails.
	DefaultQuality = 85

	// MaxImagePixels caps the decoded size of a source image; a 100MP RGBA
	// buffer is ~400MB.
	MaxImagePixels = 100_000_000
)

// ImageResizer decodes an image already shrunk to fit within maxDimension.
// The libvips implementation lives in internal/vipsthumb.
type ImageResizer interface {
	Thumbnail(path string, maxDimension int) (image.Image, error)
}

// Gate delays memory-hungry work. internal/memory's Monitor implements it.
type Gate interface {
	Wait(ctx context.Context) error
}

// Options configures a Deriver.
type Options struct {
	MaxDimension int
	Quality      int
	Workers      int

	FFmpegPath   string
	FrameOffset  time.Duration
	FrameTimeout time.Duration

	// Resizer is tried before the pure Go path when set.
	Resizer ImageResizer
	// Gate, when set, is waited on before each derivation starts.
	Gate Gate
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.FrameOffset < 0 {
		o.FrameOffset = 0
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = DefaultFrameTimeout
	}
	return o
}

// Deriver writes thumbnails into a storage layout.
type Deriver struct {
	layout *storage.Layout
	opts   Options
	sem    *semaphore.Weighted
}

// NewDeriver creates a Deriver. At most opts.Workers derivations run at once
// across all callers.
func NewDeriver(layout *storage.Layout, opts Options) *Deriver {
	opts = opts.withDefaults()
	logging.Debug("Deriver: max dimension %d, quality %d, %d workers, ffmpeg %s",
		opts.MaxDimension, opts.Quality, opts.Workers, opts.FFmpegPath)
	return &Deriver{
		layout: layout,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// Derive produces the thumbnail of storedName and returns its path. Any
// failure is wrapped in ErrDerivation and leaves no partial thumbnail behind.
func (d *Deriver) Derive(ctx context.Context, storedName string, kind mediatypes.Kind) (string, error) {
	if err := d.acquire(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDerivation, storedName, err)
	}
	defer d.sem.Release(1)

	metrics.ThumbnailDerivationsInFlight.Inc()
	defer metrics.ThumbnailDerivationsInFlight.Dec()

	start := time.Now()
	path, err := d.derive(ctx, storedName, kind)
	metrics.ThumbnailGenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(kind), "error").Inc()
		return "", fmt.Errorf("%w: %s: %v", ErrDerivation, storedName, err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues(string(kind), "success").Inc()
	logging.Debug("Thumbnail for %s written in %v", storedName, time.Since(start))
	return path, nil
}

func (d *Deriver) derive(ctx context.Context, storedName string, kind mediatypes.Kind) (string, error) {
	src := d.layout.AssetPath(storedName)

	var (
		img image.Image
		err error
	)
	switch kind {
	case mediatypes.KindImage:
		img, err = d.loadImage(src)
	case mediatypes.KindVideo:
		img, err = d.extractFrame(ctx, src)
	default:
		return "", fmt.Errorf("unsupported kind %q", kind)
	}
	if err != nil {
		return "", err
	}
	if img == nil {
		return "", errors.New("decoder returned nil image")
	}

	thumb := d.fit(img)
	return d.layout.WriteThumbnail(storedName, func(w io.Writer) error {
		return imaging.Encode(w, thumb, imaging.JPEG, imaging.JPEGQuality(d.opts.Quality))
	})
}

// acquire waits on the gate and then for a worker slot. The caller releases
// the slot.
func (d *Deriver) acquire(ctx context.Context) error {
	if d.opts.Gate != nil {
		if err := d.opts.Gate.Wait(ctx); err != nil {
			return err
		}
	}
	return d.sem.Acquire(ctx, 1)
}

// loadImage decodes src, preferring the configured resizer. The pixel budget
// applies to both paths.
func (d *Deriver) loadImage(src string) (image.Image, error) {
	if err := checkPixelBudget(src); err != nil {
		return nil, err
	}

	if d.opts.Resizer != nil {
		img, err := d.opts.Resizer.Thumbnail(src, d.opts.MaxDimension)
		if err == nil {
			return img, nil
		}
		logging.Debug("Resizer failed for %s: %v, falling back to imaging", filepath.Base(src), err)
	}

	img, err := imaging.Open(src)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// checkPixelBudget rejects images whose decoded size would exceed
// MaxImagePixels, reading only the header.
func checkPixelBudget(src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if pixels := cfg.Width * cfg.Height; pixels > MaxImagePixels {
		return fmt.Errorf("%s image is %dx%d, above the %d pixel limit", format, cfg.Width, cfg.Height, MaxImagePixels)
	}
	return nil
}

// fit bounds img to the maximum dimension without upscaling and flattens any
// transparency onto white.
func (d *Deriver) fit(img image.Image) *image.NRGBA {
	fitted := imaging.Fit(img, d.opts.MaxDimension, d.opts.MaxDimension, imaging.Lanczos)
	b := fitted.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, fitted, image.Pt(0, 0), 1.0)
}
