package intercept

import (
	"github.com/ib-77/chunkflow/pkg/callback"
	"github.com/ib-77/chunkflow/pkg/content"
)

// Interception is the answer of a Hook for one chunk.
type Interception struct {
	run func(done callback.Callback)
}

func NotHandled() Interception {
	return Interception{}
}

// Handle claims the chunk. run must call done exactly once, possibly later
// and on another goroutine.
func Handle(run func(done callback.Callback)) Interception {
	if run == nil {
		run = func(done callback.Callback) { done.Succeeded() }
	}
	return Interception{run: run}
}

func (i Interception) Handled() bool {
	return i.run != nil
}

// Run hands the completion obligation over. It panics when the chunk was not
// handled.
func (i Interception) Run(done callback.Callback) {
	if i.run == nil {
		panic("intercept: Run on a chunk that was not handled")
	}
	i.run(done)
}

// Hook must not retain or release the chunk; the transfer loop releases it
// after the completion.
type Hook func(c *content.Chunk) Interception

func Observe(fn func(c *content.Chunk)) Hook {
	return func(c *content.Chunk) Interception {
		fn(c)
		return NotHandled()
	}
}

// Divert writes the chunks that match pred to sink instead of the transfer's
// own sink.
func Divert(pred func(c *content.Chunk) bool, sink content.Sink) Hook {
	return func(c *content.Chunk) Interception {
		if !pred(c) {
			return NotHandled()
		}
		return Handle(func(done callback.Callback) {
			if err := c.Err(); err != nil {
				done.Failed(err)
				return
			}
			sink.Write(c.IsLast(), c.Bytes(), done)
		})
	}
}

// Drop completes matching chunks without writing their payload. A dropped
// last chunk still ends the stream: sink, normally the transfer's own sink,
// receives an empty last write so it can flush or close. With a nil sink a
// last chunk is never dropped.
func Drop(pred func(c *content.Chunk) bool, sink content.Sink) Hook {
	return func(c *content.Chunk) Interception {
		if !pred(c) {
			return NotHandled()
		}
		if !c.IsLast() {
			return Handle(nil)
		}
		if sink == nil {
			return NotHandled()
		}
		return Handle(func(done callback.Callback) {
			sink.Write(true, nil, done)
		})
	}
}

// Chain offers the chunk to each hook in order until one handles it.
func Chain(hooks ...Hook) Hook {
	return func(c *content.Chunk) Interception {
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if i := h(c); i.Handled() {
				return i
			}
		}
		return NotHandled()
	}
}
