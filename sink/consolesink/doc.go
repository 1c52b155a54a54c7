// Package consolesink provides a sink that writes formatted messages to
// standard output, standard error or any other io.Writer.
//
// The sink is not an io.Closer: closing the pipeline flushes it but
// never closes the underlying writer.
package consolesink
