// Package testfixtures builds in-memory media and a stand-in ffmpeg for tests.
package testfixtures

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Gradient returns a w x h image whose left and right halves differ, so
// rotations are observable.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255}
			if x < w/2 {
				c.B = 0
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// PNG encodes a w x h gradient as PNG.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TransparentPNG encodes a fully transparent w x h PNG.
func TransparentPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w x h gradient as JPEG.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WithOrientation inserts an EXIF APP1 segment carrying only the orientation
// tag directly after the SOI marker of a JPEG.
func WithOrientation(jpegData []byte, orientation uint16) []byte {
	be := binary.BigEndian

	var tiff bytes.Buffer
	tiff.WriteString("MM")
	_ = binary.Write(&tiff, be, uint16(42))
	_ = binary.Write(&tiff, be, uint32(8)) // IFD0 offset
	_ = binary.Write(&tiff, be, uint16(1)) // entry count
	_ = binary.Write(&tiff, be, uint16(0x0112))
	_ = binary.Write(&tiff, be, uint16(3)) // SHORT
	_ = binary.Write(&tiff, be, uint32(1))
	_ = binary.Write(&tiff, be, orientation)
	_ = binary.Write(&tiff, be, uint16(0)) // value padding
	_ = binary.Write(&tiff, be, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write(jpegData[:2])
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, be, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegData[2:])
	return out.Bytes()
}

// WithDimensions rewrites the frame header of a baseline or progressive JPEG
// so it claims w x h pixels. The scan data is left alone, so only header
// readers see the new size.
func WithDimensions(jpegData []byte, w, h uint16) []byte {
	out := bytes.Clone(jpegData)
	for i := 2; i+9 < len(out); {
		if out[i] != 0xFF {
			return out
		}
		marker := out[i+1]
		length := int(binary.BigEndian.Uint16(out[i+2:]))
		if marker == 0xC0 || marker == 0xC1 || marker == 0xC2 {
			binary.BigEndian.PutUint16(out[i+5:], h)
			binary.BigEndian.PutUint16(out[i+7:], w)
			return out
		}
		i += 2 + length
	}
	return out
}

// Dimensions decodes the header of the image at path.
func Dimensions(t testing.TB, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

// Stand-in ffmpeg behaviours. Scripts receive the real ffmpeg arguments and
// write the frame stored next to them to stdout.
const (
	// FFmpegFrame always writes the frame.
	FFmpegFrame = `cat "$(dirname "$0")/frame.png"`
	// FFmpegShortClip writes nothing when asked to seek, like a clip shorter
	// than the seek offset.
	FFmpegShortClip = `for a in "$@"; do [ "$a" = "-ss" ] && exit 0; done
cat "$(dirname "$0")/frame.png"`
	// FFmpegFail exits non-zero with a diagnostic.
	FFmpegFail = `echo "moov atom not found" >&2
exit 1`
	// FFmpegHang never finishes.
	FFmpegHang = `exec sleep 30`
	// FFmpegGarbage writes bytes that are not an image.
	FFmpegGarbage = `echo "not a png"`
)

// FakeFFmpeg writes an executable shell script with the given body into a
// fresh directory together with a 320x240 frame.png, and returns its path.
func FakeFFmpeg(t testing.TB, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frame.png"), PNG(t, 320, 240), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}
