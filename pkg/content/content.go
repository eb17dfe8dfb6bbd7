package content

import (
	"github.com/ib-77/chunkflow/pkg/callback"
)

// Source is a non-blocking producer of chunks.
type Source interface {
	// Read returns the next chunk or nil when none is available yet.
	Read() *Chunk
	// Demand registers a one-shot wake-up, invoked when a following Read is
	// likely to return a chunk. It may run before Demand returns.
	Demand(onReady func())
	// Fail tells the producer its consumer gave up because of err.
	Fail(err error)
}

// Sink accepts one payload at a time and reports the outcome through cb.
type Sink interface {
	Write(last bool, p []byte, cb callback.Callback)
}

type SinkFunc func(last bool, p []byte, cb callback.Callback)

func (f SinkFunc) Write(last bool, p []byte, cb callback.Callback) {
	f(last, p, cb)
}
