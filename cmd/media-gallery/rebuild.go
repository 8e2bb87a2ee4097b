package main

import (
	"context"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"media-gallery/internal/catalog"
	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/startup"
	"media-gallery/internal/storage"
	"media-gallery/internal/workers"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type thumbnailDeriver interface {
	Derive(ctx context.Context, storedName string, kind mediatypes.Kind) (string, error)
}

// rebuildSummary counts what a rebuild did.
type rebuildSummary struct {
	Derived int
	Failed  int
	Skipped int
	Orphans int
}

func newRebuildThumbnailsCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rebuild-thumbnails",
		Short: "Derive missing thumbnails and remove orphaned ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loadDotEnv()
			config, err := startup.LoadConfig()
			if err != nil {
				return err
			}
			startup.LogFFmpegCheck(config.FFmpegPath)

			app := newComponents(config, nil)
			defer app.close()

			sum, err := rebuildThumbnails(ctx, app.layout, app.catalog.List(), app.deriver, force)
			logging.Info("Rebuild finished: %d derived, %d failed, %d already present, %d orphans removed",
				sum.Derived, sum.Failed, sum.Skipped, sum.Orphans)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-derive thumbnails that already exist")
	return cmd
}

// rebuildThumbnails derives a thumbnail for every asset lacking one (or every
// asset when force is set), then deletes thumbnails no asset owns.
func rebuildThumbnails(ctx context.Context, layout *storage.Layout, assets []catalog.Asset, d thumbnailDeriver, force bool) (rebuildSummary, error) {
	started := time.Now()
	var derived, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForCPU(0, 0))
	for _, a := range assets {
		if !force && layout.HasThumbnail(a.Name) {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if _, err := d.Derive(gctx, a.Name, a.Kind); err != nil {
				logging.Warn("Thumbnail for %s failed: %v", a.Name, err)
				failed.Add(1)
				return nil
			}
			derived.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sum := rebuildSummary{
		Derived: int(derived.Load()),
		Failed:  int(failed.Load()),
		Skipped: int(skipped.Load()),
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	orphans, err := removeOrphans(layout, started)
	sum.Orphans = orphans
	return sum, err
}

// removeOrphans deletes thumbnails that no asset owns. The thumbnail
// directory is listed before the asset directory: an asset is always stored
// before its thumbnail is written, so an upload racing the sweep shows up in
// the second listing. Thumbnails written after started are left for the next
// run.
func removeOrphans(layout *storage.Layout, started time.Time) (int, error) {
	entries, err := layout.ReadThumbnailDir()
	if err != nil {
		return 0, err
	}
	assetEntries, err := layout.ReadAssetDir()
	if err != nil {
		return 0, err
	}

	owned := make(map[string]bool, len(assetEntries))
	for _, e := range assetEntries {
		if !storage.IsTemp(e.Name()) && mediatypes.IsAllowed(e.Name()) {
			owned[storage.ThumbnailName(e.Name())] = true
		}
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || storage.IsTemp(name) || !strings.HasSuffix(name, ".jpg") || owned[name] {
			continue
		}
		if info, err := e.Info(); err != nil || info.ModTime().After(started) {
			continue
		}
		ok, err := layout.RemoveThumbnail(name)
		if err != nil {
			logging.Warn("Failed to remove orphaned thumbnail %s: %v", name, err)
			continue
		}
		if ok {
			logging.Debug("Removed orphaned thumbnail %s", name)
			removed++
		}
	}
	return removed, nil
}
