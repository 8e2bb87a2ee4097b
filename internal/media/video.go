package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/metrics"
)

// DefaultFrameTimeout bounds one ffmpeg invocation.
const DefaultFrameTimeout = 30 * time.Second

// errNoFrame means ffmpeg exited cleanly without writing a frame, which is
// what happens when the seek offset lies past the end of a short clip.
var errNoFrame = errors.New("ffmpeg produced no frame")

// extractFrame returns the frame at the configured offset. Clips shorter than
// the offset fall back to their first frame.
func (d *Deriver) extractFrame(ctx context.Context, src string) (image.Image, error) {
	img, err := d.runFFmpeg(ctx, src, d.opts.FrameOffset)
	if errors.Is(err, errNoFrame) && d.opts.FrameOffset > 0 {
		logging.Debug("No frame at %v in %s, retrying at first frame", d.opts.FrameOffset, filepath.Base(src))
		img, err = d.runFFmpeg(ctx, src, 0)
	}
	return img, err
}

func (d *Deriver) runFFmpeg(ctx context.Context, src string, offset time.Duration) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.FrameTimeout)
	defer cancel()

	args := []string{"-hide_banner", "-loglevel", "error"}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}
	args = append(args,
		"-i", src,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, d.opts.FFmpegPath, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ThumbnailFFmpegDuration.Observe(time.Since(start).Seconds())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("ffmpeg timed out after %v", d.opts.FrameTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errNoFrame
	}

	logging.Debug("FFmpeg output for %s: %d bytes", filepath.Base(src), stdout.Len())

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg output: %w", err)
	}
	return img, nil
}

