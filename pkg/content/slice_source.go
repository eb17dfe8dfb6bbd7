package content

import "sync"

// SliceSource serves a fixed list of chunks. Every chunk is available
// immediately, so Demand fires inline while chunks remain.
type SliceSource struct {
	mu      sync.Mutex
	chunks  []*Chunk
	reads   int
	demands int
	fails   []error
}

func NewSliceSource(chunks ...*Chunk) *SliceSource {
	return &SliceSource{chunks: chunks}
}

func (s *SliceSource) Read() *Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if len(s.fails) > 0 || len(s.chunks) == 0 {
		return nil
	}
	c := s.chunks[0]
	s.chunks[0] = nil
	s.chunks = s.chunks[1:]
	return c
}

// Demand never fires once the slice is exhausted.
func (s *SliceSource) Demand(onReady func()) {
	s.mu.Lock()
	s.demands++
	ready := len(s.chunks) > 0 && len(s.fails) == 0
	s.mu.Unlock()

	if ready {
		onReady()
	}
}

// Fail releases the chunks that were never read.
func (s *SliceSource) Fail(err error) {
	s.mu.Lock()
	s.fails = append(s.fails, err)
	rest := s.chunks
	s.chunks = nil
	s.mu.Unlock()

	for _, c := range rest {
		c.Release()
	}
}

func (s *SliceSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *SliceSource) Demands() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demands
}

// Failures lists the causes passed to Fail, in order.
func (s *SliceSource) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.fails...)
}
