package copier

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"

	"github.com/ib-77/chunkflow/pkg/callback"
	"github.com/ib-77/chunkflow/pkg/content"
	"github.com/ib-77/chunkflow/pkg/intercept"
	"github.com/ib-77/chunkflow/pkg/iterate"
)

const (
	pathSink = "sink"
	pathHook = "hook"
)

type Stats struct {
	ID          uuid.UUID
	Chunks      int64
	Bytes       int64
	Intercepted int64
	Started     time.Time
	Finished    time.Time
}

func (s Stats) Duration() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

type Option func(*Copier)

func WithHook(h intercept.Hook) Option {
	return func(c *Copier) { c.hook = h }
}

func WithLogger(logger log.Logger) Option {
	return func(c *Copier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Copier) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithID(id uuid.UUID) Option {
	return func(c *Copier) { c.id = id }
}

// Copier is one transfer. Its completion callbacks may be invoked from any
// goroutine but never concurrently for the same chunk.
type Copier struct {
	id      uuid.UUID
	source  content.Source
	sink    content.Sink
	hook    intercept.Hook
	logger  log.Logger
	metrics *Metrics
	it      *iterate.Iterator
	done    callback.Callback

	current    atomic.Pointer[content.Chunk]
	viaHook    atomic.Bool
	terminated atomic.Bool

	chunks      atomic.Int64
	bytes       atomic.Int64
	intercepted atomic.Int64

	mu       sync.Mutex
	started  time.Time
	finished time.Time
}

func New(src content.Source, sink content.Sink, cb callback.Callback, opts ...Option) *Copier {
	c := &Copier{
		id:      uuid.New(),
		source:  src,
		sink:    sink,
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.With(c.logger, "transfer", c.id)
	c.done = completion{c}
	c.it = iterate.New(step{c}, cb, iterate.WithLogger(c.logger))
	return c
}

// Copy creates and starts a transfer.
func Copy(src content.Source, sink content.Sink, cb callback.Callback, opts ...Option) *Copier {
	c := New(src, sink, cb, opts...)
	c.Start()
	return c
}

func (c *Copier) Start() {
	c.mu.Lock()
	if c.started.IsZero() {
		c.started = time.Now()
	}
	c.mu.Unlock()

	level.Debug(c.logger).Log("event", "start")
	c.it.Iterate()
}

// Abort fails the transfer with err unless it already finished. The held
// chunk is released and the source is told through Fail.
func (c *Copier) Abort(err error) bool {
	return c.it.Abort(err)
}

func (c *Copier) ID() uuid.UUID {
	return c.id
}

func (c *Copier) State() iterate.State {
	return c.it.State()
}

func (c *Copier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ID:          c.id,
		Chunks:      c.chunks.Load(),
		Bytes:       c.bytes.Load(),
		Intercepted: c.intercepted.Load(),
		Started:     c.started,
		Finished:    c.finished,
	}
}

func (c *Copier) process() (iterate.Action, error) {
	if c.terminated.Load() {
		return iterate.Succeeded, nil
	}

	chunk := c.source.Read()
	if chunk == nil {
		if c.it.IsTerminal() {
			return iterate.Idle, nil
		}
		c.source.Demand(c.it.Iterate)
		return iterate.Idle, nil
	}
	c.current.Store(chunk)
	c.viaHook.Store(false)
	if c.abandoned() {
		return iterate.Idle, nil
	}

	if c.hook != nil {
		if i := c.hook(chunk); i.Handled() {
			if c.abandoned() {
				return iterate.Idle, nil
			}
			c.viaHook.Store(true)
			c.intercepted.Add(1)
			i.Run(c.done)
			return iterate.Scheduled, nil
		}
	}

	if err := chunk.Err(); err != nil {
		return iterate.Idle, err
	}

	if c.abandoned() {
		return iterate.Idle, nil
	}
	c.sink.Write(chunk.IsLast(), chunk.Bytes(), c.done)
	return iterate.Scheduled, nil
}

// abandoned reports whether the transfer was aborted while the step was
// running, releasing the chunk the step was about to forward.
func (c *Copier) abandoned() bool {
	if !c.it.IsTerminal() {
		return false
	}
	if chunk := c.current.Swap(nil); chunk != nil {
		chunk.Release()
	}
	return true
}

func (c *Copier) succeeded() {
	chunk := c.current.Swap(nil)
	if chunk == nil {
		// aborted while the write was outstanding
		if !c.it.IsTerminal() {
			c.it.Failed(&iterate.ViolationError{Op: "completion without a chunk in flight", State: c.it.State()})
		}
		return
	}

	if chunk.IsLast() {
		c.terminated.Store(true)
	}
	path := pathSink
	if c.viaHook.Load() {
		path = pathHook
	}
	c.chunks.Add(1)
	c.bytes.Add(int64(chunk.Len()))
	c.metrics.chunk(path, chunk.Len())
	chunk.Release()

	c.it.Succeeded()
}

func (c *Copier) failed(err error) {
	c.it.Failed(err)
}

func (c *Copier) onCompleteSuccess() {
	c.finish()
	c.metrics.transfer("success")
	level.Debug(c.logger).Log("event", "finished", "chunks", c.chunks.Load(), "bytes", c.bytes.Load())
}

func (c *Copier) onCompleteFailure(err error) {
	if chunk := c.current.Swap(nil); chunk != nil {
		chunk.Release()
	}
	c.source.Fail(err)
	c.finish()
	c.metrics.transfer("failure")
	level.Debug(c.logger).Log("event", "failed", "chunks", c.chunks.Load(), "err", err)
}

func (c *Copier) finish() {
	c.mu.Lock()
	c.finished = time.Now()
	c.mu.Unlock()
}

// step adapts the copier to the iterate engine.
type step struct{ c *Copier }

func (s step) Process() (iterate.Action, error) { return s.c.process() }
func (s step) OnCompleteSuccess()                { s.c.onCompleteSuccess() }
func (s step) OnCompleteFailure(err error)       { s.c.onCompleteFailure(err) }

// completion is the callback handed to the sink and to hooks.
type completion struct{ c *Copier }

func (d completion) Succeeded()       { d.c.succeeded() }
func (d completion) Failed(err error) { d.c.failed(err) }
