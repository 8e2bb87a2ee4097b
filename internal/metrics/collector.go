package metrics

import (
	"sync"
	"time"

	"media-gallery/internal/logging"
)

// StatsProvider reports the current gallery contents.
type StatsProvider interface {
	Stats() Stats
}

// Stats holds a snapshot of the gallery contents.
type Stats struct {
	Images     int
	Videos     int
	TotalBytes int64
}

// Collector periodically copies gallery stats into gauges.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the collection loop. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.Stats()

	MediaAssetsTotal.WithLabelValues("image").Set(float64(stats.Images))
	MediaAssetsTotal.WithLabelValues("video").Set(float64(stats.Videos))
	MediaAssetsBytes.Set(float64(stats.TotalBytes))

	logging.Debug("Metrics collected: images=%d, videos=%d, bytes=%d",
		stats.Images, stats.Videos, stats.TotalBytes)
}
