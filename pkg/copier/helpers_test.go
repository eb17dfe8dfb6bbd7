package copier

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ib-77/chunkflow/pkg/callback"
	"github.com/ib-77/chunkflow/pkg/content"
)

// scriptSource hands out a fixed script of reads; a nil entry means nothing
// is available yet. Demands are parked until the test fires them.
type scriptSource struct {
	mu      sync.Mutex
	script  []*content.Chunk
	reads   int
	demands []func()
	fails   []error
}

func newScriptSource(script ...*content.Chunk) *scriptSource {
	return &scriptSource{script: script}
}

func (s *scriptSource) Read() *content.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.script) == 0 {
		return nil
	}
	c := s.script[0]
	s.script = s.script[1:]
	return c
}

func (s *scriptSource) Demand(onReady func()) {
	s.mu.Lock()
	s.demands = append(s.demands, onReady)
	s.mu.Unlock()
}

func (s *scriptSource) Fail(err error) {
	s.mu.Lock()
	s.fails = append(s.fails, err)
	s.mu.Unlock()
}

func (s *scriptSource) fire(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	if len(s.demands) == 0 {
		s.mu.Unlock()
		t.Fatal("no demand registered")
	}
	wake := s.demands[len(s.demands)-1]
	s.mu.Unlock()
	wake()
}

func (s *scriptSource) counts() (reads, demands int, fails []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, len(s.demands), append([]error(nil), s.fails...)
}

// releases counts Release calls per chunk.
type releases struct {
	mu     sync.Mutex
	counts map[string]int
}

func newReleases() *releases {
	return &releases{counts: make(map[string]int)}
}

func (r *releases) chunk(payload string, last bool) *content.Chunk {
	return content.NewChunk([]byte(payload), last, func() {
		r.mu.Lock()
		r.counts[payload]++
		r.mu.Unlock()
	})
}

func (r *releases) of(payload string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[payload]
}

type write struct {
	payload string
	last    bool
}

// recordingSink completes inline, failing the write whose payload matches
// failOn.
type recordingSink struct {
	mu     sync.Mutex
	writes []write
	failOn string
	err    error
}

func (s *recordingSink) Write(last bool, p []byte, cb callback.Callback) {
	s.mu.Lock()
	s.writes = append(s.writes, write{string(p), last})
	fail := s.failOn != "" && s.failOn == string(p)
	s.mu.Unlock()

	if fail {
		cb.Failed(s.err)
		return
	}
	cb.Succeeded()
}

func (s *recordingSink) recorded() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes...)
}

// orderedSink completes on another goroutine and flags overlapping writes.
type orderedSink struct {
	outstanding atomic.Int32
	overlaps    atomic.Int32
	mu          sync.Mutex
	payloads    []string
}

func (s *orderedSink) Write(last bool, p []byte, cb callback.Callback) {
	if s.outstanding.Add(1) != 1 {
		s.overlaps.Add(1)
	}
	s.mu.Lock()
	s.payloads = append(s.payloads, string(p))
	s.mu.Unlock()

	go func() {
		time.Sleep(time.Millisecond)
		s.outstanding.Add(-1)
		cb.Succeeded()
	}()
}

// outcome records terminal notifications.
type outcome struct {
	successes atomic.Int32
	mu        sync.Mutex
	failures  []error
	done      chan struct{}
}

func newOutcome() *outcome {
	return &outcome{done: make(chan struct{}, 2)}
}

func (o *outcome) Succeeded() {
	o.successes.Add(1)
	o.done <- struct{}{}
}

func (o *outcome) Failed(err error) {
	o.mu.Lock()
	o.failures = append(o.failures, err)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *outcome) wait(t *testing.T) {
	t.Helper()
	select {
	case <-o.done:
	case <-time.After(2 * time.Second):
		t.Fatal("transfer did not finish")
	}
}

func (o *outcome) errs() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.failures...)
}

func stackDepth() int {
	pcs := make([]uintptr, 4096)
	return runtime.Callers(0, pcs)
}

// gatedSource blocks inside Read until the test opens the gate, then hands
// out its single chunk.
type gatedSource struct {
	entered chan struct{}
	gate    chan struct{}
	chunk   *content.Chunk

	mu      sync.Mutex
	reads   int
	demands int
	fails   []error
}

func newGatedSource(chunk *content.Chunk) *gatedSource {
	return &gatedSource{entered: make(chan struct{}), gate: make(chan struct{}), chunk: chunk}
}

func (s *gatedSource) Read() *content.Chunk {
	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()
	if !first {
		return nil
	}
	close(s.entered)
	<-s.gate
	return s.chunk
}

func (s *gatedSource) Demand(func()) {
	s.mu.Lock()
	s.demands++
	s.mu.Unlock()
}

func (s *gatedSource) Fail(err error) {
	s.mu.Lock()
	s.fails = append(s.fails, err)
	s.mu.Unlock()
}

func (s *gatedSource) failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.fails...)
}

func (s *gatedSource) demandCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demands
}
