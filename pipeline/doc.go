/*
Package pipeline delivers log messages to sinks.

A Pipeline owns a bounded queue and one worker goroutine. Every message,
whether submitted synchronously or asynchronously, goes through the same
queue, so sinks observe messages in the order they were accepted and a
sink is never called from two goroutines at once.

Synchronous submission returns after every sink has processed the
message. Asynchronous submission returns once the message is queued.
When the queue is full an asynchronous message is handled according to
the OverflowPolicy:

	Block       wait for room, optionally bounded by BlockTimeout
	DropNewest  discard the incoming message
	DropOldest  evict the oldest queued asynchronous message, or discard
	            the incoming one when only synchronous messages wait

Synchronous messages always wait for room and are never evicted.

Sinks must not submit synchronous messages to the pipeline that is
calling them; the worker would wait on itself.

Flush waits for everything submitted before it and then flushes sinks
that implement sink.Flusher. Close stops intake, drains the queue within
DrainTimeout, flushes, and closes sinks that implement io.Closer.
*/
package pipeline
