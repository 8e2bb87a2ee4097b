// Package vipsthumb implements media.ImageResizer with libvips. The image is
// loaded in full and resized inside libvips, outside the Go heap; callers
// bound the source size before handing it over. It needs cgo and libvips at
// build and run time, so it is only wired in when USE_VIPS is set.
package vipsthumb

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"media-gallery/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	mu      sync.Mutex
	started bool
)

// Resizer decodes and shrinks images with libvips.
type Resizer struct{}

// New starts libvips once per process and returns a Resizer.
func New() (*Resizer, error) {
	mu.Lock()
	defer mu.Unlock()

	if !started {
		vips.LoggingSettings(logHandler, vipsLevel(logging.GetLevel()))
		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})
		started = true
		logging.Info("libvips initialized (version: %s)", vips.Version)
	}
	return &Resizer{}, nil
}

// Shutdown releases libvips. libvips cannot be restarted in the same process.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if started {
		vips.Shutdown()
		started = false
		logging.Info("libvips shutdown complete")
	}
}

// Thumbnail loads path and shrinks it to fit within maxDimension. Images that
// already fit are returned at their original size.
func (r *Resizer) Thumbnail(path string, maxDimension int) (image.Image, error) {
	mu.Lock()
	ok := started
	mu.Unlock()
	if !ok {
		return nil, errors.New("libvips not started")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if w > maxDimension || h > maxDimension {
		logging.Debug("vips shrinking %s from %dx%d to fit %d", filepath.Base(path), w, h, maxDimension)
		if err := ref.Thumbnail(maxDimension, maxDimension, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize: %w", err)
		}
	}

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}
	return img, nil
}

func vipsLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	default:
		return vips.LogLevelCritical
	}
}

func logHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}
