// Package callback defines the completion contract used between the
// iteration engine, the transfer loop and their collaborators.
package callback

import "sync"

// Callback is notified once when an asynchronous operation finishes.
type Callback interface {
	Succeeded()
	Failed(err error)
}

type funcs struct {
	onSuccess func()
	onFailure func(error)
}

// Funcs builds a Callback from two functions. Either may be nil.
func Funcs(onSuccess func(), onFailure func(error)) Callback {
	return funcs{onSuccess: onSuccess, onFailure: onFailure}
}

func (f funcs) Succeeded() {
	if f.onSuccess != nil {
		f.onSuccess()
	}
}

func (f funcs) Failed(err error) {
	if f.onFailure != nil {
		f.onFailure(err)
	}
}

type nop struct{}

func (nop) Succeeded()   {}
func (nop) Failed(error) {}

// Nop ignores every notification.
var Nop Callback = nop{}

// Waiter records the first terminal notification and lets a goroutine block
// until it arrives.
type Waiter struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewWaiter() *Waiter {
	return &Waiter{done: make(chan struct{})}
}

func (w *Waiter) Succeeded() {
	w.once.Do(func() {
		close(w.done)
	})
}

func (w *Waiter) Failed(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// Done is closed after the first notification.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Err is only meaningful after Done is closed.
func (w *Waiter) Err() error {
	<-w.done
	return w.err
}
