// Package logging configures the process-wide slog logger for hemin.
// Logs are JSON lines written to a size-rotated file under the XDG state
// directory, optionally mirrored to stderr.
package logging
