package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"media-gallery/internal/logging"
	"media-gallery/internal/metrics"
	"media-gallery/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrNormalization marks a failed orientation rewrite. It is never fatal to
// an upload.
var ErrNormalization = errors.New("orientation normalization failed")

// normalizedQuality is the JPEG quality used when an original is rewritten.
const normalizedQuality = 95

// NormalizeOrientation rotates the JPEG at path according to its EXIF
// orientation tag and rewrites it in place. Tags 3, 6 and 8 are applied;
// anything else, including a missing tag or missing EXIF data, leaves the file
// untouched. Other formats in the allow-set carry no EXIF block and are
// skipped. The rewritten file carries no metadata, so normalizing twice is
// harmless.
func NormalizeOrientation(path string) (rotated bool, err error) {
	defer func() {
		switch {
		case err != nil:
			metrics.OrientationNormalizationsTotal.WithLabelValues("error").Inc()
		case rotated:
			metrics.OrientationNormalizationsTotal.WithLabelValues("rotated").Inc()
		default:
			metrics.OrientationNormalizationsTotal.WithLabelValues("unchanged").Inc()
		}
	}()

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return false, nil
	}

	orientation, err := readOrientation(path)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrNormalization, filepath.Base(path), err)
	}

	transform := orientationTransform(orientation)
	if transform == nil {
		return false, nil
	}

	if err := checkPixelBudget(path); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrNormalization, filepath.Base(path), err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrNormalization, filepath.Base(path), err)
	}
	img = transform(img)

	err = storage.ReplaceFile(path, func(f *os.File) error {
		return imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(normalizedQuality))
	})
	if err != nil {
		return false, fmt.Errorf("%w: rewrite %s: %v", ErrNormalization, filepath.Base(path), err)
	}

	logging.Debug("Normalized orientation %d for %s", orientation, filepath.Base(path))
	return true, nil
}

// Normalize runs NormalizeOrientation on a stored asset. It waits on the
// same gate and worker slots as Derive, since a rotation decodes the whole
// image.
func (d *Deriver) Normalize(ctx context.Context, storedName string) (bool, error) {
	if err := d.acquire(ctx); err != nil {
		metrics.OrientationNormalizationsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("%w: %s: %v", ErrNormalization, storedName, err)
	}
	defer d.sem.Release(1)
	return NormalizeOrientation(d.layout.AssetPath(storedName))
}

// readOrientation returns the EXIF orientation tag, or 0 when the file has no
// EXIF block or no orientation entry.
func readOrientation(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Missing and malformed EXIF blocks both mean there is nothing to apply.
		logging.Debug("No usable EXIF data in %s: %v", filepath.Base(path), err)
		return 0, nil
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, nil
	}
	v, err := tag.Int(0)
	if err != nil {
		logging.Debug("Unreadable orientation tag in %s: %v", filepath.Base(path), err)
		return 0, nil
	}
	return v, nil
}

// orientationTransform maps an orientation tag to the rotation that makes the
// image upright. Mirrored orientations are left alone.
func orientationTransform(orientation int) func(image.Image) *image.NRGBA {
	switch orientation {
	case 3:
		return imaging.Rotate180
	case 6:
		return imaging.Rotate270
	case 8:
		return imaging.Rotate90
	}
	return nil
}
