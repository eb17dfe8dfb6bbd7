package iterate

import (
	"fmt"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/ib-77/chunkflow/pkg/callback"
)

// Step computes the next action of an iteration. A returned error is handled
// exactly like a call to Iterator.Failed.
type Step interface {
	Process() (Action, error)
}

type StepFunc func() (Action, error)

func (f StepFunc) Process() (Action, error) {
	return f()
}

// Completer is implemented by steps that want the terminal notification
// before the outer callback sees it.
type Completer interface {
	OnCompleteSuccess()
	OnCompleteFailure(err error)
}

type Option func(*Iterator)

func WithLogger(logger log.Logger) Option {
	return func(it *Iterator) {
		if logger != nil {
			it.logger = logger
		}
	}
}

// Iterator must not be driven from several goroutines at once for the same
// notification, but completions may arrive on any goroutine: every state
// change happens under mu and mu is never held while the step or a callback
// runs. A failure that arrives while Process is running takes effect at once
// but its notifications are delivered by the stepping frame after Process
// returns.
type Iterator struct {
	step   Step
	cb     callback.Callback
	logger log.Logger

	mu      sync.Mutex
	state   State
	iterate bool // Iterate arrived while processing
	called  bool // Succeeded arrived while processing

	pending bool  // failed while processing, notifications not yet sent
	cause   error // the pending failure
}

func New(step Step, cb callback.Callback, opts ...Option) *Iterator {
	if cb == nil {
		cb = callback.Nop
	}
	it := &Iterator{
		step:   step,
		cb:     cb,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

func (it *Iterator) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

func (it *Iterator) IsTerminal() bool {
	return it.State().terminal()
}

func (it *Iterator) String() string {
	return fmt.Sprintf("Iterator@%p[%s]", it, it.State())
}

// Iterate starts the iteration or resumes it after an Idle action.
func (it *Iterator) Iterate() {
	it.mu.Lock()
	switch it.state {
	case StateIdle:
		it.state = StateProcessing
		it.mu.Unlock()
		it.processing()
		return
	case StateProcessing:
		it.iterate = true
	}
	it.mu.Unlock()
}

// Succeeded completes the operation a step scheduled.
func (it *Iterator) Succeeded() {
	it.mu.Lock()
	switch it.state {
	case StateProcessing:
		if it.called {
			it.mu.Unlock()
			it.Failed(&ViolationError{Op: "succeeded twice", State: StateProcessing})
			return
		}
		it.called = true
		it.mu.Unlock()
	case StateScheduled:
		it.state = StateProcessing
		it.mu.Unlock()
		it.processing()
	case StateIdle:
		it.mu.Unlock()
		it.Failed(&ViolationError{Op: "succeeded", State: StateIdle})
	default:
		it.mu.Unlock()
	}
}

// Failed ends the iteration. A failure after success panics with a
// *ViolationError; a second failure is ignored.
func (it *Iterator) Failed(err error) {
	it.fail(err, true)
}

// Abort fails a running iteration. Unlike Failed it does nothing once the
// iteration is terminal, so it may race with the last completion. It reports
// whether this call ended the iteration.
func (it *Iterator) Abort(err error) bool {
	return it.fail(err, false)
}

func (it *Iterator) fail(err error, strict bool) bool {
	it.mu.Lock()
	switch it.state {
	case StateSucceeded:
		it.mu.Unlock()
		if strict {
			panic(&ViolationError{Op: "failed", State: StateSucceeded, Cause: err})
		}
		return false
	case StateFailed:
		it.mu.Unlock()
		level.Debug(it.logger).Log("event", "failure ignored", "err", err)
		return false
	}
	from := it.state
	it.state = StateFailed
	it.iterate, it.called = false, false
	if from == StateProcessing {
		it.pending, it.cause = true, err
		it.mu.Unlock()
		level.Debug(it.logger).Log("event", "failure deferred", "err", err)
		return true
	}
	it.mu.Unlock()

	level.Debug(it.logger).Log("event", "failed", "from", from, "err", err)
	it.notifyFailure(err)
	return true
}

// failProcessing ends the iteration from the stepping frame itself.
func (it *Iterator) failProcessing(err error) {
	it.mu.Lock()
	if it.state != StateProcessing {
		it.mu.Unlock()
		it.flushPending()
		return
	}
	it.state = StateFailed
	it.iterate, it.called = false, false
	it.mu.Unlock()

	level.Debug(it.logger).Log("event", "failed", "from", StateProcessing, "err", err)
	it.notifyFailure(err)
}

// flushPending delivers a failure that arrived while Process was running.
func (it *Iterator) flushPending() {
	it.mu.Lock()
	pending, err := it.pending, it.cause
	it.pending, it.cause = false, nil
	it.mu.Unlock()

	if pending {
		level.Debug(it.logger).Log("event", "failed", "from", StateProcessing, "err", err)
		it.notifyFailure(err)
	}
}

func (it *Iterator) notifyFailure(err error) {
	if c, ok := it.step.(Completer); ok {
		c.OnCompleteFailure(err)
	}
	it.cb.Failed(err)
}

func (it *Iterator) processing() {
	for {
		action, err := it.process()

		it.mu.Lock()
		if it.state != StateProcessing {
			// failed while the step was running
			it.mu.Unlock()
			it.flushPending()
			return
		}
		if err != nil {
			it.mu.Unlock()
			it.failProcessing(err)
			return
		}

		switch action {
		case Idle:
			if it.called {
				it.mu.Unlock()
				it.failProcessing(&ViolationError{Op: "succeeded without scheduled operation", State: StateProcessing})
				return
			}
			if it.iterate {
				it.iterate = false
				it.mu.Unlock()
				continue
			}
			it.state = StateIdle
			it.mu.Unlock()
			return

		case Scheduled:
			if it.called {
				it.called = false
				it.mu.Unlock()
				continue
			}
			it.state = StateScheduled
			it.mu.Unlock()
			return

		case Succeeded:
			it.state = StateSucceeded
			it.iterate, it.called = false, false
			it.mu.Unlock()

			level.Debug(it.logger).Log("event", "succeeded")
			if c, ok := it.step.(Completer); ok {
				c.OnCompleteSuccess()
			}
			it.cb.Succeeded()
			return

		default:
			it.mu.Unlock()
			it.failProcessing(&ViolationError{Op: action.String(), State: StateProcessing})
			return
		}
	}
}

func (it *Iterator) process() (action Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(*ViolationError); ok {
				panic(v)
			}
			err = panicError(r)
		}
	}()
	return it.step.Process()
}

func panicError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("iterate: step panic: %w", v)
	case string:
		return fmt.Errorf("iterate: step panic: %s", v)
	default:
		return fmt.Errorf("iterate: step panic: %v", v)
	}
}
