package content

import (
	"fmt"
	"sync/atomic"
)

// Chunk is a read-only view over a byte range. Whoever reads a chunk from a
// Source owns it until Release.
type Chunk struct {
	p        []byte
	last     bool
	err      error
	release  func()
	released atomic.Bool
}

// NewChunk wraps p. release, when not nil, runs once on the first Release.
func NewChunk(p []byte, last bool, release func()) *Chunk {
	return &Chunk{p: p, last: last, release: release}
}

// Last returns a final chunk carrying p.
func Last(p []byte) *Chunk {
	return NewChunk(p, true, nil)
}

// ErrorChunk returns a chunk standing for a producer failure. It is never last:
// it terminates a transfer by failing it.
func ErrorChunk(err error) *Chunk {
	return &Chunk{err: err}
}

// EOF is an empty last chunk. Releasing it has no effect, so it can be shared.
var EOF = &Chunk{last: true}

func (c *Chunk) Bytes() []byte {
	if c.err != nil {
		return nil
	}
	return c.p
}

func (c *Chunk) Len() int {
	return len(c.Bytes())
}

// IsLast is false for error chunks.
func (c *Chunk) IsLast() bool {
	return c.last && c.err == nil
}

func (c *Chunk) IsError() bool {
	return c.err != nil
}

func (c *Chunk) Err() error {
	return c.err
}

// Release gives the chunk back. Only the first call has an effect and reports
// true.
func (c *Chunk) Release() bool {
	if c == EOF {
		return true
	}
	if !c.released.CompareAndSwap(false, true) {
		return false
	}
	if c.release != nil {
		c.release()
	}
	return true
}

func (c *Chunk) IsReleased() bool {
	return c.released.Load()
}

func (c *Chunk) String() string {
	if c.err != nil {
		return fmt.Sprintf("Chunk[error=%v]", c.err)
	}
	return fmt.Sprintf("Chunk[len=%d last=%t]", len(c.p), c.last)
}
