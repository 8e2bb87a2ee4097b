// Package logging provides a simple leveled logging interface for the
// media gallery.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including best-effort steps that failed
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level comes from DEBUG=true or LOG_LEVEL, and can be overridden at
// runtime with SetLevel.
package logging
