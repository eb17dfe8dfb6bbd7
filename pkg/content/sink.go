package content

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/ssbc/go-luigi"

	"github.com/ib-77/chunkflow/pkg/callback"
)

type flusher interface {
	Flush() error
}

// WriterSink writes inline and completes before Write returns. A writer that
// can Flush is flushed after the last chunk.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(last bool, p []byte, cb callback.Callback) {
	if len(p) > 0 {
		n, err := s.w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			cb.Failed(err)
			return
		}
	}
	if last {
		if f, ok := s.w.(flusher); ok {
			if err := f.Flush(); err != nil {
				cb.Failed(err)
				return
			}
		}
	}
	cb.Succeeded()
}

// AsyncSink runs every write of the wrapped sink on a new goroutine.
type AsyncSink struct {
	inner Sink
}

func NewAsyncSink(inner Sink) *AsyncSink {
	return &AsyncSink{inner: inner}
}

func (s *AsyncSink) Write(last bool, p []byte, cb callback.Callback) {
	go s.inner.Write(last, p, cb)
}

// LuigiSink pours a copy of every payload into a luigi sink and closes it
// after the last one. Pour may block, so it runs on its own goroutine.
type LuigiSink struct {
	ctx  context.Context
	sink luigi.Sink
}

func NewLuigiSink(ctx context.Context, sink luigi.Sink) *LuigiSink {
	return &LuigiSink{ctx: ctx, sink: sink}
}

func (s *LuigiSink) Write(last bool, p []byte, cb callback.Callback) {
	var cp []byte
	if len(p) > 0 {
		cp = append([]byte(nil), p...)
	}

	go func() {
		if cp != nil {
			if err := s.sink.Pour(s.ctx, cp); err != nil {
				cb.Failed(errors.Wrap(err, "luigi sink: pour failed"))
				return
			}
		}
		if last {
			if err := s.sink.Close(); err != nil {
				cb.Failed(errors.Wrap(err, "luigi sink: close failed"))
				return
			}
		}
		cb.Succeeded()
	}()
}
