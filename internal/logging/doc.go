// Package logging configures slog for the daemon and CLI. It provides a
// human-readable console handler for interactive use, a JSON handler for the
// daemon log file, and field name constants so pipeline components attach
// consistent attributes.
package logging
