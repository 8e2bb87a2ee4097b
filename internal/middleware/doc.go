// Package middleware provides the HTTP middleware wrapped around the gallery
// router: W3C access logging, Prometheus request metrics, gzip compression of
// text responses and panic recovery.
package middleware
