// Package core turns files on disk into text or binary values.
//
// It sits between the byte-level packages (charset, transcode, classify)
// and the transports (the HTTP server and the open CLI), and can be used
// by either without modification.
//
// # Loading
//
// [Loader.Load] resolves a path, then takes one of two routes:
//
//   - With an explicit encoding label the file is streamed through a
//     transcoder into UTF-8. Unknown labels fall back to UTF-8 with a
//     warning, or fail when [Loader.Strict] is set.
//   - Without one the whole file is read and classified as UTF-8 text,
//     UTF-16 text with a byte-order mark, or binary.
//
// Every [Result] carries the file's extension so callers can hand the
// content to a structured-format parser, and a [Tag] pointing back at the
// argument that named the file.
//
// # Service
//
// [Service] wraps a Loader for servers: it limits concurrent loads,
// confines paths to a root directory, records Prometheus metrics and
// writes a history entry per call when a [HistoryStore] is configured.
//
// # Error Handling
//
// Load failures are [*LoadError] values. Path resolution and open failures
// both match [ErrNotFound]. [MapError] turns any error into a
// [UserMessage] with a support code:
//
//   - FILE001-FILE008: File errors (size, not found, read, confinement)
//   - ENC001: Unknown encoding label
//   - LOAD001-LOAD004: Request errors (missing path, busy, cancelled)
//   - DB001-DB006: History database errors
package core
