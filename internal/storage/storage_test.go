package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayout(t *testing.T) *Layout {
	t.Helper()
	root := t.TempDir()
	assets := filepath.Join(root, "uploads")
	thumbs := filepath.Join(root, "thumbnails")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.MkdirAll(thumbs, 0o755))
	return New(assets, thumbs)
}

func TestNaming(t *testing.T) {
	l := New("/srv/uploads", "/srv/thumbnails")

	assert.Equal(t, "20260101_photo", BaseName("20260101_photo.png"))
	assert.Equal(t, "a.b", BaseName("a.b.mp4"))
	assert.Equal(t, "20260101_clip.jpg", ThumbnailName("20260101_clip.mp4"))
	assert.Equal(t, "x.jpg", ThumbnailName("x.jpg"))
	assert.Equal(t, filepath.Join("/srv/uploads", "x.png"), l.AssetPath("x.png"))
	assert.Equal(t, filepath.Join("/srv/thumbnails", "x.jpg"), l.ThumbnailPath("x.png"))
	assert.Equal(t, filepath.Join("/srv/uploads", "passwd"), l.AssetPath("../../etc/passwd"))
}

func TestSave(t *testing.T) {
	l := newLayout(t)

	n, err := l.Save("a.png", strings.NewReader("pixels"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	data, err := os.ReadFile(l.AssetPath("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	entries, err := l.ReadAssetDir()
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must not remain")
}

func TestSaveNeverOverwrites(t *testing.T) {
	l := newLayout(t)

	_, err := l.Save("a.png", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = l.Save("a.png", strings.NewReader("second"))
	require.ErrorIs(t, err, ErrExists)

	data, err := os.ReadFile(l.AssetPath("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveReaderFailure(t *testing.T) {
	l := newLayout(t)

	_, err := l.Save("a.png", io.MultiReader(strings.NewReader("partial"), failingReader{}))
	require.ErrorIs(t, err, ErrPersistence)

	entries, err := l.ReadAssetDir()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteThumbnailReplaces(t *testing.T) {
	l := newLayout(t)

	for _, content := range []string{"v1", "v2"} {
		path, err := l.WriteThumbnail("clip.mp4", func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewBufferString(content))
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, l.ThumbnailPath("clip.mp4"), path)
	}

	data, err := os.ReadFile(l.ThumbnailPath("clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.True(t, l.HasThumbnail("clip.mp4"))

	entries, err := l.ReadThumbnailDir()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteThumbnailFailureLeavesNothing(t *testing.T) {
	l := newLayout(t)

	_, err := l.WriteThumbnail("a.png", func(io.Writer) error { return errors.New("encode failed") })
	require.Error(t, err)
	assert.False(t, l.HasThumbnail("a.png"))

	entries, err := l.ReadThumbnailDir()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemoveIsIdempotent(t *testing.T) {
	l := newLayout(t)
	_, err := l.Save("a.png", strings.NewReader("x"))
	require.NoError(t, err)

	removed, err := l.RemoveAsset("a.png")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = l.RemoveAsset("a.png")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = l.RemoveThumbnail("a.png")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestThumbnailOwners(t *testing.T) {
	l := newLayout(t)
	for _, name := range []string{"x.png", "x.mp4", "x.b.png", "y.png"} {
		_, err := l.Save(name, strings.NewReader("x"))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(l.AssetDir(), tempPrefix+"x.gif"), nil, 0o644))

	owners, err := l.ThumbnailOwners("x.jpg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x.png", "x.mp4"}, owners)
}

func TestRename(t *testing.T) {
	l := newLayout(t)
	_, err := l.Save("old.png", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = l.Save("taken.png", strings.NewReader("y"))
	require.NoError(t, err)

	require.ErrorIs(t, l.Rename("old.png", "taken.png"), ErrExists)

	require.NoError(t, l.Rename("old.png", "new.png"))
	assert.NoFileExists(t, l.AssetPath("old.png"))
	assert.FileExists(t, l.AssetPath("new.png"))

	err = l.Rename("missing.png", "other.png")
	assert.True(t, os.IsNotExist(err))
}

func TestIsTemp(t *testing.T) {
	assert.True(t, IsTemp(".incoming-123"))
	assert.False(t, IsTemp("photo.jpg"))
}
