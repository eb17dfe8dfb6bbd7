// Package copier moves the chunks of a content.Source into a content.Sink,
// one chunk at a time, on top of the iterate engine.
//
// Each step reads one chunk. When nothing is ready the copier registers a
// demand and goes idle; otherwise the chunk is offered to the optional
// intercept.Hook and, unless the hook claims it, written to the sink. The next
// chunk is read only after the previous write completed, which gives
// backpressure for free. Every chunk read is released exactly once and the
// caller's callback sees exactly one terminal notification.
//
// Copy/New+Start are the asynchronous entry points. Transfer blocks until the
// copy ends and TransferAll runs many copies with bounded parallelism.
package copier
