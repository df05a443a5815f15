package framework

import (
	"context"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Signal is a discrete trigger delivered to an Activator.
type Signal interface {
	SignalName() string
}

// Activator performs exactly one activation per delivered signal.
// Activate is never called concurrently by the Loop.
type Activator interface {
	Activate(context.Context, Signal)
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// SignalPoster accepts signals from any goroutine.
type SignalPoster interface {
	// Post enqueues the signal for a later activation.
	Post(Signal)
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// TickSignal is posted by the Loop when its interval timer fires.
type TickSignal struct{}

// SignalName implements Signal.
func (TickSignal) SignalName() string { return "tick" }
