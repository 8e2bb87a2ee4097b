// Package startup loads the gallery configuration and logs the startup
// sequence.
//
// Configuration is read from environment variables (optionally seeded from a
// .env file by the caller) into a single Config struct using struct tags.
// LoadConfig validates the values, resolves the upload and thumbnail
// directories to absolute paths, creates them and verifies write access;
// failure of any of these steps is fatal for the server.
//
// The remaining functions print the sectioned banner-style log output used
// during startup and shutdown.
package startup
