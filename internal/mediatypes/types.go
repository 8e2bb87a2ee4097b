package mediatypes

import "strings"

// Kind is the media kind of an asset, derived from its extension.
type Kind string

const (
	// KindImage is a still image; it gets orientation normalization and a
	// resized thumbnail.
	KindImage Kind = "image"
	// KindVideo is a video; its thumbnail is a single extracted frame.
	KindVideo Kind = "video"
)

// allowed is the fixed allow-set of lowercase extensions. It must never be
// relaxed for files that are already stored.
var allowed = map[string]Kind{
	"png":  KindImage,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"gif":  KindImage,
	"mp4":  KindVideo,
	"mov":  KindVideo,
	"avi":  KindVideo,
}

// Extension returns the lowercase substring after the last '.', or "" when
// name has no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// KindOf returns the kind for name's extension and whether it is allowed.
func KindOf(name string) (Kind, bool) {
	k, ok := allowed[Extension(name)]
	return k, ok
}

// IsAllowed reports whether name carries an allow-listed extension.
func IsAllowed(name string) bool {
	_, ok := KindOf(name)
	return ok
}

// AllowedExtensions returns the allow-set, for display and tests.
func AllowedExtensions() []string {
	return []string{"png", "jpg", "jpeg", "gif", "mp4", "mov", "avi"}
}
