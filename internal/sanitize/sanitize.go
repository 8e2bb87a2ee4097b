// Package sanitize validates and canonicalizes client-supplied filenames and
// generates collision-free stored names.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"media-gallery/internal/mediatypes"

	"github.com/google/uuid"
)

var (
	// ErrInvalidName means nothing usable (or no extension) survived stripping.
	ErrInvalidName = errors.New("invalid filename")
	// ErrInvalidType means the extension is not in the allow-set.
	ErrInvalidType = errors.New("invalid file type")
)

// MaxNameLength caps a sanitized name so the stored name (prefix included)
// stays below common filesystem limits.
const MaxNameLength = 200

func allowedRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == '.'
}

// Sanitize strips every character outside [A-Za-z0-9_.-], collapses runs of
// dots, drops leading dots and truncates to MaxNameLength keeping the
// extension. The result never contains a path separator, never starts with a
// dot and always has a non-empty extension; anything else is ErrInvalidName.
func Sanitize(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	prevDot := false
	for _, r := range raw {
		if !allowedRune(r) {
			continue
		}
		if r == '.' {
			if prevDot {
				continue
			}
			prevDot = true
		} else {
			prevDot = false
		}
		b.WriteRune(r)
	}

	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "", fmt.Errorf("%w: %q is empty after sanitizing", ErrInvalidName, raw)
	}

	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return "", fmt.Errorf("%w: %q has no extension", ErrInvalidName, raw)
	}

	if len(name) > MaxNameLength {
		ext := name[dot:]
		keep := MaxNameLength - len(ext)
		if keep <= 0 {
			return "", fmt.Errorf("%w: extension of %q is too long", ErrInvalidName, raw)
		}
		name = strings.TrimRight(name[:keep], ".") + ext
	}

	return name, nil
}

// IsAllowedExtension reports whether a sanitized name has an allow-listed
// extension.
func IsAllowedExtension(safeName string) bool {
	return mediatypes.IsAllowed(safeName)
}

// Validate sanitizes raw and checks its extension, returning the safe name
// and its kind. Errors wrap ErrInvalidName or ErrInvalidType.
func Validate(raw string) (string, mediatypes.Kind, error) {
	safe, err := Sanitize(raw)
	if err != nil {
		return "", "", err
	}
	kind, ok := mediatypes.KindOf(safe)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidType, safe)
	}
	return safe, kind, nil
}

// NameGenerator produces stored names of the form
// {yyyymmddHHMMSSffffff}-{suffix}_{safeName}. The random suffix keeps names
// distinct even when the clock does not advance between calls.
type NameGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	suffix func() string
}

// NewNameGenerator returns a generator using the wall clock and a random
// 8-character suffix.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		now: time.Now,
		suffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// StoredName derives the stored name for an already sanitized name.
func (g *NameGenerator) StoredName(safeName string) string {
	g.mu.Lock()
	t := g.now()
	s := g.suffix()
	g.mu.Unlock()

	return fmt.Sprintf("%s%06d-%s_%s", t.Format("20060102150405"), t.Nanosecond()/1000, s, safeName)
}
