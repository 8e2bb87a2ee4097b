// Package lifecycle deletes and renames assets together with the thumbnail
// they own.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/sanitize"
	"media-gallery/internal/storage"
)

var (
	// ErrNotFound is returned when a rename target does not exist.
	ErrNotFound = errors.New("asset not found")
	// ErrKindChange is returned when a rename would turn an image into a video
	// or the reverse.
	ErrKindChange = errors.New("rename cannot change media kind")
)

const maxNameAttempts = 5

// Deriver produces the thumbnail of a stored asset.
type Deriver interface {
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

// Manager mutates stored assets.
type Manager struct {
	layout  *storage.Layout
	deriver Deriver
	names   Namer
	catalog Invalidator
}

// New creates a Manager. catalog may be nil.
func New(layout *storage.Layout, deriver Deriver, names Namer, catalog Invalidator) *Manager {
	return &Manager{layout: layout, deriver: deriver, names: names, catalog: catalog}
}

// Delete removes an asset and its thumbnail. The thumbnail stays when another
// asset with the same base name still owns it. The name is sanitized again
// before use. Deleting something that is not there succeeds; removed reports
// whether anything was actually deleted.
func (m *Manager) Delete(name string) (removed bool, err error) {
	safe, _, verr := sanitize.Validate(name)
	if verr != nil {
		logging.Debug("Delete of %q ignored: %v", name, verr)
		metrics.DeletesTotal.WithLabelValues("absent").Inc()
		return false, nil
	}

	assetRemoved, err := m.layout.RemoveAsset(safe)
	if err != nil {
		metrics.DeletesTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("delete %s: %w", safe, err)
	}
	var thumbRemoved bool
	if !m.thumbnailOwned(safe) {
		thumbRemoved, err = m.layout.RemoveThumbnail(safe)
	}
	if err != nil {
		metrics.DeletesTotal.WithLabelValues("error").Inc()
		return assetRemoved, fmt.Errorf("delete thumbnail of %s: %w", safe, err)
	}

	removed = assetRemoved || thumbRemoved
	if !removed {
		metrics.DeletesTotal.WithLabelValues("absent").Inc()
		return false, nil
	}

	if m.catalog != nil {
		m.catalog.Invalidate("delete")
	}
	metrics.DeletesTotal.WithLabelValues("removed").Inc()
	logging.Info("Deleted %s (asset: %v, thumbnail: %v)", safe, assetRemoved, thumbRemoved)
	return true, nil
}

// thumbnailOwned reports whether an allow-listed asset other than name still
// claims name's thumbnail, as "x.png" does for a delete of "x.jpg".
// When the directory cannot be read the thumbnail is assumed owned.
func (m *Manager) thumbnailOwned(name string) bool {
	owners, err := m.layout.ThumbnailOwners(name)
	if err != nil {
		logging.Warn("Keeping thumbnail of %s, asset directory unreadable: %v", name, err)
		return true
	}
	for _, owner := range owners {
		if owner != name && mediatypes.IsAllowed(owner) {
			logging.Debug("Thumbnail of %s belongs to %s, left in place", name, owner)
			return true
		}
	}
	return false
}

// Rename gives an asset a fresh stored name derived from newRaw and moves its
// thumbnail along by regenerating it under the new base name. The old
// thumbnail is removed. The extension must stay in the allow-set and keep the
// asset's media kind.
func (m *Manager) Rename(ctx context.Context, oldName, newRaw string) (string, error) {
	stored, err := m.rename(ctx, oldName, newRaw)
	switch {
	case err == nil:
		metrics.RenamesTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.RenamesTotal.WithLabelValues("not_found").Inc()
	case errors.Is(err, sanitize.ErrInvalidName), errors.Is(err, sanitize.ErrInvalidType), errors.Is(err, ErrKindChange):
		metrics.RenamesTotal.WithLabelValues("invalid").Inc()
	case errors.Is(err, storage.ErrExists):
		metrics.RenamesTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.RenamesTotal.WithLabelValues("error").Inc()
	}
	return stored, err
}

func (m *Manager) rename(ctx context.Context, oldName, newRaw string) (string, error) {
	oldSafe, oldKind, err := sanitize.Validate(oldName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	newSafe, newKind, err := sanitize.Validate(newRaw)
	if err != nil {
		return "", err
	}
	if newKind != oldKind {
		return "", fmt.Errorf("%w: %s to %s", ErrKindChange, oldKind, newKind)
	}

	if _, err := m.layout.StatAsset(oldSafe); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, oldSafe)
		}
		return "", fmt.Errorf("stat %s: %w", oldSafe, err)
	}

	var newStored string
	for attempt := 1; ; attempt++ {
		newStored = m.names.StoredName(newSafe)
		err = m.layout.Rename(oldSafe, newStored)
		if err == nil {
			break
		}
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, oldSafe)
		}
		if !errors.Is(err, storage.ErrExists) || attempt == maxNameAttempts {
			return "", fmt.Errorf("rename %s: %w", oldSafe, err)
		}
	}

	if m.catalog != nil {
		m.catalog.Invalidate("rename")
	}

	if _, err := m.deriver.Derive(ctx, newStored, newKind); err != nil {
		logging.Warn("No thumbnail for renamed %s: %v", newStored, err)
	}
	if _, err := m.layout.RemoveThumbnail(oldSafe); err != nil {
		logging.Warn("Failed to remove old thumbnail of %s: %v", oldSafe, err)
	}

	logging.Info("Renamed %s to %s", oldSafe, newStored)
	return newStored, nil
}
