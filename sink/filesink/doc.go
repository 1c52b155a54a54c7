// Package filesink provides a sink that appends formatted messages to a
// file.
//
// Writes are buffered; the pipeline's Flush and Close empty the buffer.
// The file rotates when it reaches MaxSize bytes or when RotateInterval
// has passed since the last rotation. Rotated files are renamed with a
// timestamp suffix and pruned by count (MaxBackups) and age (MaxAge).
package filesink
