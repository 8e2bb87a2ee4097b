// Package catalog presents the asset directory as a time-ordered, paginated
// view. The directory listing is the source of truth; a single cached
// snapshot bounds scan cost and is invalidated on every known write.
package catalog

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/storage"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds staleness for changes nobody reported.
const DefaultTTL = 30 * time.Second

// Asset is one allow-listed file in the asset directory.
type Asset struct {
	Name       string          `json:"filename"`
	Kind       mediatypes.Kind `json:"type"`
	Size       int64           `json:"size"`
	ModifiedAt time.Time       `json:"upload_time"`
}

// Page is one page of the catalog.
type Page struct {
	Items    []Asset `json:"items"`
	Page     int     `json:"page"`
	PerPage  int     `json:"per_page"`
	Total    int     `json:"total"`
	LastPage int     `json:"last_page"`
}

// Catalog lists assets newest first. Slices it returns share the cached
// snapshot and must not be modified.
type Catalog struct {
	layout *storage.Layout
	ttl    time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	snapshot   []Asset
	loadedAt   time.Time
	valid      bool
	generation uint64

	scans singleflight.Group
}

// New creates a Catalog over layout's asset directory. A ttl of zero or less
// disables caching.
func New(layout *storage.Layout, ttl time.Duration) *Catalog {
	return &Catalog{
		layout: layout,
		ttl:    ttl,
		now:    time.Now,
	}
}

// List returns every asset ordered by modification time descending, ties
// broken by name descending. An unreadable directory yields an empty list.
func (c *Catalog) List() []Asset {
	c.mu.RLock()
	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		snap := c.snapshot
		c.mu.RUnlock()
		metrics.CatalogCacheHits.Inc()
		return snap
	}
	gen := c.generation
	c.mu.RUnlock()

	metrics.CatalogCacheMisses.Inc()

	// Keyed by generation so a caller arriving after an invalidation never
	// joins a scan that started before it.
	v, _, _ := c.scans.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		assets := c.scan()

		c.mu.Lock()
		if c.generation == gen {
			c.snapshot = assets
			c.loadedAt = c.now()
			c.valid = true
		}
		c.mu.Unlock()
		return assets, nil
	})
	return v.([]Asset)
}

// Invalidate drops the cached snapshot. source labels the metric.
func (c *Catalog) Invalidate(source string) {
	c.mu.Lock()
	c.valid = false
	c.generation++
	c.mu.Unlock()

	metrics.CatalogInvalidationsTotal.WithLabelValues(source).Inc()
	logging.Debug("Catalog invalidated by %s", source)
}

// Since returns the assets that arrived after a caller last saw n of them:
// the newest L-n entries of a listing of length L. A negative n counts as 0.
// The answer is only exact if nothing was deleted in between.
func (c *Catalog) Since(n int) []Asset {
	all := c.List()
	if n < 0 {
		n = 0
	}
	if n >= len(all) {
		return []Asset{}
	}
	return all[:len(all)-n]
}

// After returns assets modified strictly after t, newest first.
func (c *Catalog) After(t time.Time) []Asset {
	all := c.List()
	i := sort.Search(len(all), func(i int) bool { return !all[i].ModifiedAt.After(t) })
	return all[:i]
}

// Page returns 1-indexed page p of size perPage. Pages outside the catalog
// have no items but still report the true total.
func (c *Catalog) Page(p, perPage int) Page {
	all := c.List()
	if perPage < 1 {
		perPage = 1
	}
	out := Page{
		Items:    []Asset{},
		Page:     p,
		PerPage:  perPage,
		Total:    len(all),
		LastPage: (len(all) + perPage - 1) / perPage,
	}
	if p < 1 {
		return out
	}

	start := (p - 1) * perPage
	if start >= len(all) {
		return out
	}
	end := min(start+perPage, len(all))
	out.Items = all[start:end]
	return out
}

// Stats summarizes the catalog for the metrics collector.
func (c *Catalog) Stats() metrics.Stats {
	var s metrics.Stats
	for _, a := range c.List() {
		switch a.Kind {
		case mediatypes.KindImage:
			s.Images++
		case mediatypes.KindVideo:
			s.Videos++
		}
		s.TotalBytes += a.Size
	}
	return s
}

func (c *Catalog) scan() []Asset {
	start := time.Now()
	entries, err := c.layout.ReadAssetDir()
	metrics.CatalogScanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CatalogScansTotal.WithLabelValues("error").Inc()
		logging.Error("Failed to list %s: %v", c.layout.AssetDir(), err)
		return []Asset{}
	}
	metrics.CatalogScansTotal.WithLabelValues("success").Inc()

	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || e.IsDir() {
			continue
		}
		kind, ok := mediatypes.KindOf(name)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		assets = append(assets, Asset{
			Name:       name,
			Kind:       kind,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].ModifiedAt.Equal(assets[j].ModifiedAt) {
			return assets[i].ModifiedAt.After(assets[j].ModifiedAt)
		}
		return assets[i].Name > assets[j].Name
	})

	logging.Debug("Catalog scan found %d assets in %v", len(assets), time.Since(start))
	return assets
}
