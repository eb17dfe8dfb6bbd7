package content

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/ssbc/go-luigi"
)

// FetchFunc produces one chunk, blocking as long as it needs to.
type FetchFunc func(ctx context.Context) *Chunk

// FetchSource turns a blocking producer into a Source: every demand runs one
// fetch on its own goroutine and fires the wake-up when the chunk is ready.
type FetchSource struct {
	ctx    context.Context
	cancel context.CancelFunc
	fetch  FetchFunc
	onFail func(error)

	mu       sync.Mutex
	ready    *Chunk
	wake     func()
	fetching bool
	failure  error
}

func NewFetchSource(ctx context.Context, fetch FetchFunc, onFail func(error)) *FetchSource {
	ctx, cancel := context.WithCancel(ctx)
	return &FetchSource{
		ctx:    ctx,
		cancel: cancel,
		fetch:  fetch,
		onFail: onFail,
	}
}

func (s *FetchSource) Read() *Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ready
	s.ready = nil
	return c
}

func (s *FetchSource) Demand(onReady func()) {
	s.mu.Lock()
	if s.ready != nil {
		s.mu.Unlock()
		onReady()
		return
	}
	if s.failure != nil {
		s.mu.Unlock()
		return
	}
	s.wake = onReady
	start := !s.fetching
	s.fetching = true
	s.mu.Unlock()

	if start {
		go s.run()
	}
}

func (s *FetchSource) run() {
	var c *Chunk
	if err := s.ctx.Err(); err != nil {
		c = ErrorChunk(err)
	} else {
		c = s.fetch(s.ctx)
	}

	s.mu.Lock()
	s.fetching = false
	if s.failure != nil {
		s.mu.Unlock()
		c.Release()
		return
	}
	s.ready = c
	wake := s.wake
	s.wake = nil
	s.mu.Unlock()

	if wake != nil {
		wake()
	}
}

func (s *FetchSource) Fail(err error) {
	s.mu.Lock()
	if s.failure != nil {
		s.mu.Unlock()
		return
	}
	s.failure = err
	s.wake = nil
	ready := s.ready
	s.ready = nil
	s.mu.Unlock()

	if ready != nil {
		ready.Release()
	}
	s.cancel()
	if s.onFail != nil {
		s.onFail(err)
	}
}

// maxEmptyReads bounds consecutive (0, nil) reads before a reader is given up
// on with io.ErrNoProgress.
const maxEmptyReads = 100

// NewReaderSource reads r in pieces of at most size bytes, one Read per demand.
// Buffers are pooled and go back to the pool when their chunk is released.
func NewReaderSource(ctx context.Context, r io.Reader, size int) *FetchSource {
	if size <= 0 {
		size = 32 * 1024
	}
	pool := &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}

	fetch := func(ctx context.Context) *Chunk {
		bufp := pool.Get().(*[]byte)
		buf := *bufp
		for empty := 0; ; empty++ {
			if empty == maxEmptyReads {
				pool.Put(bufp)
				return ErrorChunk(io.ErrNoProgress)
			}
			n, err := r.Read(buf)
			switch {
			case n > 0:
				return NewChunk(buf[:n], err == io.EOF, func() { pool.Put(bufp) })
			case err == io.EOF:
				pool.Put(bufp)
				return EOF
			case err != nil:
				pool.Put(bufp)
				return ErrorChunk(err)
			case ctx.Err() != nil:
				pool.Put(bufp)
				return ErrorChunk(ctx.Err())
			}
		}
	}

	var closeOnce sync.Once
	onFail := func(error) {
		if closer, ok := r.(io.Closer); ok {
			closeOnce.Do(func() { _ = closer.Close() })
		}
	}

	return NewFetchSource(ctx, fetch, onFail)
}

// NewLuigiSource pulls from a luigi stream. Values may be []byte, string or
// *Chunk; luigi's end of stream becomes EOF.
func NewLuigiSource(ctx context.Context, src luigi.Source) *FetchSource {
	fetch := func(ctx context.Context) *Chunk {
		v, err := src.Next(ctx)
		if luigi.IsEOS(err) {
			return EOF
		} else if err != nil {
			return ErrorChunk(errors.Wrap(err, "luigi source: next failed"))
		}

		switch tv := v.(type) {
		case []byte:
			return NewChunk(tv, false, nil)
		case string:
			return NewChunk([]byte(tv), false, nil)
		case *Chunk:
			return tv
		default:
			return ErrorChunk(errors.Errorf("luigi source: unhandled value type %T", v))
		}
	}

	onFail := func(err error) {
		if ec, ok := src.(luigi.ErrorCloser); ok {
			_ = ec.CloseWithError(err)
		}
	}

	return NewFetchSource(ctx, fetch, onFail)
}
