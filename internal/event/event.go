// Package event provides a one-shot binary signal.
package event

import (
	"context"
	"sync"
)

// Event starts unset and can be signalled once. Waiters block until it is set;
// after that every Wait returns immediately.
type Event struct {
	once sync.Once
	ch   chan struct{}
}

func Create() *Event {
	return &Event{ch: make(chan struct{})}
}

// Signal sets the event. Extra calls are no-ops.
func (e *Event) Signal() {
	e.once.Do(func() { close(e.ch) })
}

func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

func (e *Event) Wait() {
	<-e.ch
}

// WaitContext waits for the event or for ctx to be done, whichever is first.
func (e *Event) WaitContext(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done exposes the underlying channel for use in select statements.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}
