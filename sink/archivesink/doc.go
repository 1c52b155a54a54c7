// Package archivesink keeps a durable, ordered archive of log messages in
// a Pebble database.
//
// Keys are the message timestamp in nanoseconds followed by a sequence
// number, both big-endian, so iteration order is time order with ties
// broken by arrival. Values are JSON records. lumbercat replay reads an
// archive back.
package archivesink
