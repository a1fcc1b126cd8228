// Package logging hands out per-module slog loggers whose levels can be
// tuned from config or changed at runtime.
//
// Every record goes to an in-memory ring buffer (streamed by the logs API).
// It is also written to stdout unless stdout is /dev/null, and to the
// systemd journal when its socket exists. Journal entries carry attributes
// as fields:
//
//	journalctl -t camseq MODULE=session CAPTURE_ID=6f1c2a9e-4b7d-4a8e-9c31-2f5d7e0b1a44
//
// Per-module levels live under [logging.modules] in config.toml:
//
//	[logging.modules]
//	capture = "debug"
//	http = "warn"
package logging
