// Package logtail reads the tail of Bastion's diagnostic log for display
// in the TUI.
//
// # Overview
//
// The Tail function extracts the last N lines from a log file without
// loading the whole file into memory, using a ring buffer of size N over
// a single sequential scan. Memory usage is O(N × average line length)
// regardless of file size, and lines come back in chronological order.
//
// The Level helper classifies one structured (JSON) log line by its level
// field so the UI can style warnings and errors. Non-JSON lines classify
// as empty and render unstyled.
//
// # Error Handling
//
// Tail returns nil, nil for non-existent files (graceful degradation).
// Other errors (permission denied, I/O errors) are returned wrapped.
//
// # Design Rationale
//
// This package is intentionally simple and focused:
//   - No streaming or file watching (the UI tick re-reads the tail)
//   - No log rotation handling (reads current file only)
//   - No filtering or searching (that's the UI's job)
//   - Pure functions with no global state
package logtail
