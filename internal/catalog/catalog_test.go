package catalog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-gallery/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newLayout(t *testing.T) *storage.Layout {
	t.Helper()
	root := t.TempDir()
	assets, thumbs := filepath.Join(root, "uploads"), filepath.Join(root, "thumbnails")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.MkdirAll(thumbs, 0o755))
	return storage.New(assets, thumbs)
}

// put creates an asset whose mtime is base plus offset seconds.
func put(t *testing.T, l *storage.Layout, name string, offset int) {
	t.Helper()
	path := filepath.Join(l.AssetDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	mt := base.Add(time.Duration(offset) * time.Second)
	require.NoError(t, os.Chtimes(path, mt, mt))
}

func names(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Name
	}
	return out
}

func TestListOrderingAndFiltering(t *testing.T) {
	l := newLayout(t)
	put(t, l, "old.png", 1)
	put(t, l, "new.mp4", 3)
	put(t, l, "mid.JPG", 2)
	put(t, l, "notes.txt", 4)
	put(t, l, ".hidden.png", 5)
	put(t, l, ".incoming-123", 6)
	require.NoError(t, os.Mkdir(filepath.Join(l.AssetDir(), "folder.png"), 0o755))

	c := New(l, 0)
	got := c.List()

	assert.Equal(t, []string{"new.mp4", "mid.JPG", "old.png"}, names(got))
	assert.Equal(t, "video", string(got[0].Kind))
	assert.Equal(t, "image", string(got[1].Kind))
	assert.Equal(t, int64(len("new.mp4")), got[0].Size)
	assert.True(t, got[0].ModifiedAt.Equal(base.Add(3*time.Second)))
}

func TestListBreaksTiesByNameDescending(t *testing.T) {
	l := newLayout(t)
	put(t, l, "20261019120000000001-aaaa_a.png", 0)
	put(t, l, "20261019120000000002-bbbb_b.png", 0)
	put(t, l, "20261019120000000003-cccc_c.png", 0)

	c := New(l, 0)
	want := []string{
		"20261019120000000003-cccc_c.png",
		"20261019120000000002-bbbb_b.png",
		"20261019120000000001-aaaa_a.png",
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, names(c.List()), "ordering must be deterministic")
	}
}

func TestSince(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)
	put(t, l, "b.png", 2)
	put(t, l, "c.png", 3)
	c := New(l, 0)

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"zero returns everything", 0, []string{"c.png", "b.png", "a.png"}},
		{"negative counts as zero", -4, []string{"c.png", "b.png", "a.png"}},
		{"one known", 1, []string{"c.png", "b.png"}},
		{"all known", 3, []string{}},
		{"more than exist", 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(c.Since(tt.n)))
		})
	}
}

func TestAfter(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)
	put(t, l, "b.png", 2)
	put(t, l, "c.png", 3)
	c := New(l, 0)

	assert.Equal(t, []string{"c.png", "b.png"}, names(c.After(base.Add(time.Second))))
	assert.Empty(t, c.After(base.Add(3*time.Second)))
	assert.Len(t, c.After(time.Time{}), 3)
}

func TestPage(t *testing.T) {
	l := newLayout(t)
	for i := 0; i < 25; i++ {
		put(t, l, string(rune('a'+i))+".png", i)
	}
	c := New(l, 0)

	tests := []struct {
		name      string
		page      int
		perPage   int
		wantLen   int
		wantFirst string
	}{
		{"first page", 1, 10, 10, "y.png"},
		{"second page", 2, 10, 10, "o.png"},
		{"partial last page", 3, 10, 5, "e.png"},
		{"past the end", 4, 10, 0, ""},
		{"zero page", 0, 10, 0, ""},
		{"negative page", -1, 10, 0, ""},
		{"page size clamps to one", 1, 0, 1, "y.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Page(tt.page, tt.perPage)
			assert.Equal(t, 25, p.Total)
			require.Len(t, p.Items, tt.wantLen)
			assert.NotNil(t, p.Items)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Items[0].Name)
			}
		})
	}

	assert.Equal(t, 3, c.Page(1, 10).LastPage)
}

func TestCacheAndInvalidate(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)

	c := New(l, time.Hour)
	require.Len(t, c.List(), 1)

	put(t, l, "b.png", 2)
	assert.Len(t, c.List(), 1, "served from cache")

	c.Invalidate("upload")
	assert.Len(t, c.List(), 2)
}

func TestCacheExpires(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)

	now := base
	c := New(l, 30*time.Second)
	c.now = func() time.Time { return now }
	require.Len(t, c.List(), 1)

	put(t, l, "b.png", 2)
	now = now.Add(29 * time.Second)
	assert.Len(t, c.List(), 1)

	now = now.Add(2 * time.Second)
	assert.Len(t, c.List(), 2)
}

func TestUnreadableDirectoryDegradesToEmpty(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)
	require.NoError(t, os.RemoveAll(l.AssetDir()))

	c := New(l, time.Hour)
	assert.Empty(t, c.List())
	assert.Empty(t, c.Since(0))
	assert.Equal(t, 0, c.Page(1, 10).Total)
}

func TestConcurrentListAndInvalidate(t *testing.T) {
	l := newLayout(t)
	for i := 0; i < 10; i++ {
		put(t, l, string(rune('a'+i))+".png", i)
	}
	c := New(l, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Len(t, c.List(), 10)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Invalidate("delete")
			}
		}()
	}
	wg.Wait()
}

func TestStats(t *testing.T) {
	l := newLayout(t)
	put(t, l, "a.png", 1)
	put(t, l, "bb.jpg", 2)
	put(t, l, "c.mov", 3)

	s := New(l, 0).Stats()
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, 1, s.Videos)
	assert.Equal(t, int64(len("a.png")+len("bb.jpg")+len("c.mov")), s.TotalBytes)
}
