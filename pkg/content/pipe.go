package content

import (
	"errors"
	"sync"
)

var ErrPipeClosed = errors.New("content: pipe closed")

// Pipe connects a producer goroutine to a consumer that reads without
// blocking. A registered demand fires on the goroutine of the next Offer or
// Close.
type Pipe struct {
	mu      sync.Mutex
	queue   []*Chunk
	closed  bool
	failure error
	demand  func()
}

func NewPipe() *Pipe {
	return &Pipe{}
}

// Offer queues c. After the consumer failed, c is released and the failure
// cause is returned.
func (p *Pipe) Offer(c *Chunk) error {
	p.mu.Lock()
	if p.failure != nil {
		err := p.failure
		p.mu.Unlock()
		c.Release()
		return err
	}
	if p.closed {
		p.mu.Unlock()
		c.Release()
		return ErrPipeClosed
	}
	p.queue = append(p.queue, c)
	if c.IsLast() || c.IsError() {
		p.closed = true
	}
	wake := p.takeDemand()
	p.mu.Unlock()

	if wake != nil {
		wake()
	}
	return nil
}

// Close ends the stream with an empty last chunk.
func (p *Pipe) Close() error {
	return p.Offer(EOF)
}

// CloseWithError ends the stream with an error chunk.
func (p *Pipe) CloseWithError(err error) error {
	if err == nil {
		return p.Close()
	}
	return p.Offer(ErrorChunk(err))
}

func (p *Pipe) Read() *Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failure != nil || len(p.queue) == 0 {
		return nil
	}
	c := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return c
}

func (p *Pipe) Demand(onReady func()) {
	p.mu.Lock()
	if len(p.queue) > 0 {
		p.mu.Unlock()
		onReady()
		return
	}
	if p.failure == nil {
		p.demand = onReady
	}
	p.mu.Unlock()
}

func (p *Pipe) Fail(err error) {
	p.mu.Lock()
	if p.failure != nil {
		p.mu.Unlock()
		return
	}
	p.failure = err
	p.demand = nil
	rest := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, c := range rest {
		c.Release()
	}
}

// Err returns the cause the consumer failed with, if any.
func (p *Pipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

func (p *Pipe) takeDemand() func() {
	wake := p.demand
	p.demand = nil
	return wake
}
