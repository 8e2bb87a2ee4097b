// Package storage defines the on-disk layout of the gallery: a flat asset
// directory holding originals under their stored names, and a flat thumbnail
// directory holding at most one "<base>.jpg" per asset.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-gallery/internal/filesystem"
)

var (
	// ErrPersistence wraps disk write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrExists is returned when the target stored name is already taken.
	ErrExists = errors.New("stored name already exists")
)

// tempPrefix starts with a dot, which sanitized names never do, so
// in-progress files are never mistaken for assets.
const tempPrefix = ".incoming-"

// Layout resolves stored names to paths and performs the file operations
// that keep an asset and its thumbnail consistent.
type Layout struct {
	assetDir string
	thumbDir string
	retry    filesystem.RetryConfig
}

// New creates a Layout over two existing directories.
func New(assetDir, thumbDir string) *Layout {
	retry := filesystem.DefaultRetryConfig()
	retry.VolumeResolver = filesystem.NewVolumeResolver(map[string]string{
		"uploads":    assetDir,
		"thumbnails": thumbDir,
	})
	return &Layout{assetDir: assetDir, thumbDir: thumbDir, retry: retry}
}

// AssetDir returns the asset directory.
func (l *Layout) AssetDir() string { return l.assetDir }

// ThumbnailDir returns the thumbnail directory.
func (l *Layout) ThumbnailDir() string { return l.thumbDir }

// BaseName strips the last extension from a stored name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ThumbnailName returns the thumbnail file name owned by an asset.
func ThumbnailName(storedName string) string {
	return BaseName(storedName) + ".jpg"
}

// AssetPath returns the path of an asset. storedName must be sanitized.
func (l *Layout) AssetPath(storedName string) string {
	return filepath.Join(l.assetDir, filepath.Base(storedName))
}

// ThumbnailPath returns the path of the thumbnail owned by storedName.
func (l *Layout) ThumbnailPath(storedName string) string {
	return filepath.Join(l.thumbDir, ThumbnailName(filepath.Base(storedName)))
}

// Save streams r into a new asset. The bytes land in a temporary file first
// and are published with a hard link, so readers never see a partial asset
// and an existing asset is never overwritten (ErrExists).
func (l *Layout) Save(storedName string, r io.Reader) (int64, error) {
	final := l.AssetPath(storedName)

	tmp, err := os.CreateTemp(l.assetDir, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("%w: write %s: %v", ErrPersistence, storedName, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %v", ErrPersistence, storedName, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return n, fmt.Errorf("%w: chmod %s: %v", ErrPersistence, storedName, err)
	}

	if err := os.Link(tmpPath, final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return n, fmt.Errorf("%w: %s", ErrExists, storedName)
		}
		return n, fmt.Errorf("%w: publish %s: %v", ErrPersistence, storedName, err)
	}
	return n, nil
}

// WriteThumbnail writes the thumbnail of storedName through write, replacing
// any previous one atomically.
func (l *Layout) WriteThumbnail(storedName string, write func(w io.Writer) error) (string, error) {
	final := l.ThumbnailPath(storedName)
	if err := ReplaceFile(final, func(f *os.File) error { return write(f) }); err != nil {
		return "", err
	}
	return final, nil
}

// ReplaceFile writes path via a temporary sibling and renames it into place.
func ReplaceFile(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: chmod %s: %v", ErrPersistence, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename into %s: %v", ErrPersistence, path, err)
	}
	return nil
}

// Rename moves an asset to a new stored name without overwriting. It returns
// an error satisfying os.IsNotExist when the source is absent.
func (l *Layout) Rename(oldName, newName string) error {
	oldPath, newPath := l.AssetPath(oldName), l.AssetPath(newName)
	if err := os.Link(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, newName)
		}
		return err
	}
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveAsset deletes an asset. Absence is not an error; removed reports
// whether a file was actually deleted.
func (l *Layout) RemoveAsset(storedName string) (removed bool, err error) {
	return removeIfExists(l.AssetPath(storedName))
}

// RemoveThumbnail deletes the thumbnail owned by storedName, if any.
func (l *Layout) RemoveThumbnail(storedName string) (removed bool, err error) {
	return removeIfExists(l.ThumbnailPath(storedName))
}

func removeIfExists(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StatAsset stats an asset with stale-handle retry.
func (l *Layout) StatAsset(storedName string) (os.FileInfo, error) {
	return filesystem.StatWithRetry(l.AssetPath(storedName), l.retry)
}

// HasThumbnail reports whether the thumbnail of storedName exists.
func (l *Layout) HasThumbnail(storedName string) bool {
	info, err := filesystem.StatWithRetry(l.ThumbnailPath(storedName), l.retry)
	return err == nil && info.Mode().IsRegular()
}

// OpenAsset opens an asset for reading with stale-handle retry.
func (l *Layout) OpenAsset(storedName string) (*os.File, error) {
	return filesystem.OpenWithRetry(l.AssetPath(storedName), l.retry)
}

// OpenThumbnail opens the thumbnail owned by storedName.
func (l *Layout) OpenThumbnail(storedName string) (*os.File, error) {
	return filesystem.OpenWithRetry(l.ThumbnailPath(storedName), l.retry)
}

// ReadAssetDir lists the asset directory.
func (l *Layout) ReadAssetDir() ([]os.DirEntry, error) {
	return filesystem.ReadDirWithRetry(l.assetDir, l.retry)
}

// ReadThumbnailDir lists the thumbnail directory.
func (l *Layout) ReadThumbnailDir() ([]os.DirEntry, error) {
	return filesystem.ReadDirWithRetry(l.thumbDir, l.retry)
}

// ThumbnailOwners lists the assets whose thumbnail name equals that of
// storedName. Assets of different kinds can share a base name and with it a
// thumbnail file.
func (l *Layout) ThumbnailOwners(storedName string) ([]string, error) {
	entries, err := l.ReadAssetDir()
	if err != nil {
		return nil, err
	}
	want := ThumbnailName(storedName)
	var owners []string
	for _, e := range entries {
		if e.IsDir() || IsTemp(e.Name()) {
			continue
		}
		if ThumbnailName(e.Name()) == want {
			owners = append(owners, e.Name())
		}
	}
	return owners, nil
}

// IsTemp reports whether a directory entry name is an in-progress write.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
