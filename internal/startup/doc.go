// Package startup handles configuration loading and the startup/shutdown
// logging shared by the plex-faces commands.
//
// # Configuration
//
// Settings resolve in viper's usual order: command-line flags bound by the
// caller, then environment variables, then an optional plex-faces.yaml in
// the working directory or ~/.config/plex-faces, then defaults.
//
//   - PLEX_FACES_DATABASE: Path to com.plexapp.plugins.library.db
//   - PLEX_FACES_EXIFTOOL: exiftool binary (default: exiftool on PATH)
//   - PLEX_FACES_WORKERS: Number of exiftool processes (default: CPU count, max 16)
//   - PLEX_FACES_EXTRACT_TIMEOUT: Per-file extraction timeout (default: 30s)
//   - PLEX_FACES_METRICS_FILE: Prometheus textfile written on exit (default: disabled)
//   - PLEX_FACES_MATCH: Tag match mode for list and delete: contains, prefix, exact
//   - PLEX_FACES_CASE_SENSITIVE: Case-sensitive tag matching (default: false)
//   - LOG_LEVEL: debug, info, warn, error (DEBUG=1 forces debug)
//
// Invalid optional values are logged and replaced by their defaults. A
// library database path that does not exist is an error.
//
// # Build Information
//
// [Version], [Commit] and [BuildTime] are injected with -ldflags:
//
//	go build -ldflags "-X plex-faces/internal/startup.Version=1.0.0" ./cmd/plex-faces
package startup
