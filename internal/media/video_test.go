package media

import (
	"context"
	"testing"
	"time"

	"media-gallery/internal/mediatypes"
	"media-gallery/internal/testfixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveVideo(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{"frame at offset", testfixtures.FFmpegFrame, false},
		{"short clip falls back to first frame", testfixtures.FFmpegShortClip, false},
		{"extractor failure", testfixtures.FFmpegFail, true},
		{"undecodable output", testfixtures.FFmpegGarbage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ffmpeg := testfixtures.FakeFFmpeg(t, tt.script)
			d, layout := newTestDeriver(t, Options{FFmpegPath: ffmpeg, FrameOffset: time.Second, FrameTimeout: 5 * time.Second})
			putAsset(t, layout, "clip.mp4", []byte("not really a video"))

			path, err := d.Derive(context.Background(), "clip.mp4", mediatypes.KindVideo)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrDerivation)
				assert.False(t, layout.HasThumbnail("clip.mp4"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, layout.ThumbnailPath("clip.mp4"), path)

			w, h := testfixtures.Dimensions(t, path)
			assert.Equal(t, 320, w)
			assert.Equal(t, 240, h)
		})
	}
}

func TestDeriveVideoFailureMentionsStderr(t *testing.T) {
	ffmpeg := testfixtures.FakeFFmpeg(t, testfixtures.FFmpegFail)
	d, layout := newTestDeriver(t, Options{FFmpegPath: ffmpeg})
	putAsset(t, layout, "clip.mov", []byte("x"))

	_, err := d.Derive(context.Background(), "clip.mov", mediatypes.KindVideo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestDeriveVideoTimeout(t *testing.T) {
	ffmpeg := testfixtures.FakeFFmpeg(t, testfixtures.FFmpegHang)
	d, layout := newTestDeriver(t, Options{FFmpegPath: ffmpeg, FrameTimeout: 200 * time.Millisecond})
	putAsset(t, layout, "clip.avi", []byte("x"))

	start := time.Now()
	_, err := d.Derive(context.Background(), "clip.avi", mediatypes.KindVideo)
	require.ErrorIs(t, err, ErrDerivation)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDeriveVideoMissingBinary(t *testing.T) {
	d, layout := newTestDeriver(t, Options{FFmpegPath: "/nonexistent/ffmpeg"})
	putAsset(t, layout, "clip.mp4", []byte("x"))

	_, err := d.Derive(context.Background(), "clip.mp4", mediatypes.KindVideo)
	require.ErrorIs(t, err, ErrDerivation)
}
