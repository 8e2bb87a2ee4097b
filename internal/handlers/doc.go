// Package handlers implements the gallery's HTTP endpoints: the public gallery
// and upload API, the authenticated admin surface, file serving with
// thumbnail fallback, archive export and the health and version probes.
//
// Programmatic endpoints answer errors with a JSON envelope:
//
//	{"status": "error", "message": "..."}
package handlers
