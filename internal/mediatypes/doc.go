// Package mediatypes defines the extension allow-set of the gallery and the
// image/video kind derived from it.
//
// The allow-set is {png, jpg, jpeg, gif, mp4, mov, avi}; matching is
// case-insensitive on the substring after the last dot.
package mediatypes
