// Package media derives gallery artifacts from persisted assets.
//
// NormalizeOrientation rewrites a JPEG so its pixels are upright according to
// the EXIF orientation tag. A Deriver produces the single "<base>.jpg"
// thumbnail owned by an asset:
//   - Images: decode, fit within the configured bound without upscaling,
//     flatten onto white and encode as JPEG
//   - Videos: extract one frame with ffmpeg under a timeout, then treat the
//     frame like an image
//
// All derivations share one weighted semaphore so concurrent requests cannot
// oversubscribe the CPU.
package media
