// Package formatter turns a core.Message into bytes for sinks that
// write text.
//
// Formatter returns a []byte; WriterFormatter writes straight to an
// io.Writer and BufferFormatter fills a caller-owned bytes.Buffer.
// Sinks check for the optional interfaces once at construction time.
//
// TextFormatter writes one line per message:
//
//	2026-01-15T12:00:00Z [INFO] [server.go:42 main.serve] (ctx=7) listening tag=api
//
// JSONFormatter writes one object per line with the keys time, level,
// flag, context, message, caller and tag. Both use pooled buffers and
// Append-style helpers; buffers larger than 64 KiB are not returned to
// the pool.
package formatter
