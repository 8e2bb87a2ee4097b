// Package archive streams the gallery's assets as a zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"

	"media-gallery/internal/catalog"
	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/storage"
)

// Summary describes a finished archive.
type Summary struct {
	Entries int
	Bytes   int64
	Skipped int
}

// Write streams one zip entry per allow-listed asset into w, named by the
// asset's path relative to the asset directory. Assets that disappear while
// the archive is being written are skipped. Nothing is buffered beyond the
// compressor's window, so w can be an HTTP response.
func Write(ctx context.Context, w io.Writer, layout *storage.Layout, assets []catalog.Asset) (Summary, error) {
	var sum Summary
	zw := zip.NewWriter(w)

	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return sum, err
		}
		if !mediatypes.IsAllowed(a.Name) {
			continue
		}

		n, err := addEntry(zw, layout, a)
		if os.IsNotExist(err) {
			logging.Debug("Skipping %s, removed during archive", a.Name)
			sum.Skipped++
			continue
		}
		if err != nil {
			zw.Close()
			metrics.ArchiveDownloadsTotal.WithLabelValues("error").Inc()
			return sum, fmt.Errorf("archive %s: %w", a.Name, err)
		}
		sum.Entries++
		sum.Bytes += n
	}

	if err := zw.Close(); err != nil {
		metrics.ArchiveDownloadsTotal.WithLabelValues("error").Inc()
		return sum, fmt.Errorf("finish archive: %w", err)
	}

	metrics.ArchiveDownloadsTotal.WithLabelValues("success").Inc()
	metrics.ArchiveBytesTotal.Add(float64(sum.Bytes))
	return sum, nil
}

func addEntry(zw *zip.Writer, layout *storage.Layout, a catalog.Asset) (int64, error) {
	f, err := layout.OpenAsset(a.Name)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	hdr.Name = a.Name
	hdr.Method = method(a)

	ew, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	return io.Copy(ew, f)
}

// method stores formats that are already compressed and deflates the rest.
func method(a catalog.Asset) uint16 {
	switch mediatypes.Extension(a.Name) {
	case "jpg", "jpeg", "mp4", "mov":
		return zip.Store
	}
	return zip.Deflate
}
