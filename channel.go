// Package gochan implements CSP-style typed channels for passing values
// between concurrent goroutines: a bounded, buffered ring-backed channel, a
// zero-capacity rendezvous channel, and a generalized select that waits on
// several channels for the first ready send or receive.
//
// Scheduling model: every blocking operation parks the calling goroutine on
// a counted semaphore (internal/sema) wrapped in a reusable waiter
// (internal/waiter); nothing here busy-waits except the short internal
// spinlock guarding a channel's own state, which is never held across a
// block.
package gochan

import "github.com/lemon-mint/go-chan/spawn"

// Channel is a typed, bounded or zero-capacity mailbox supporting blocking
// send, blocking receive, and close. The concrete variant (buffered or
// unbuffered/rendezvous) is a sealed implementation detail chosen by Make
// from the requested capacity; callers only ever see this interface.
type Channel[T any] interface {
	// Send blocks until there is room, a receiver takes the value
	// directly, or the channel closes. It returns true on success and
	// false if the channel was (or became) closed before delivery.
	Send(value T) bool

	// Receive blocks until a value is available or the channel is closed
	// and fully drained. The second return value is false only in the
	// closed-and-drained case.
	Receive() (T, bool)

	// Close is idempotent. It wakes every parked sender (which observes
	// failure) and every parked receiver (which drains any remaining
	// buffered values, then observes the empty case).
	Close()

	// IsClosed reports whether Close has been called. A true result is
	// final; a false result is only a snapshot.
	IsClosed() bool
}

// Option configures a channel constructed by Make.
type Option func(*config)

type config struct {
	spawner spawn.Spawner
}

// WithSpawner overrides the background-thread collaborator handed to the
// channel's waiter pool, whose semaphores use it to dispatch deferred
// Notify continuations. The channels themselves never call Notify, so the
// choice of spawner has no effect on Send, Receive, Close or select.
func WithSpawner(s spawn.Spawner) Option {
	return func(c *config) { c.spawner = s }
}

// Make constructs a new Channel[T]. A capacity of 0 yields an unbuffered
// (rendezvous) channel; a positive capacity yields a bounded buffered
// channel whose backing ring is rounded up to the next power of two. The
// ring length, not the requested capacity, bounds the buffer: Make[T](3)
// holds up to 4 values before Send blocks.
// Negative capacities are a programmer error and panic.
func Make[T any](capacity int, opts ...Option) Channel[T] {
	if capacity < 0 {
		panic("gochan: negative capacity")
	}
	cfg := config{spawner: spawn.Default}
	for _, opt := range opts {
		opt(&cfg)
	}
	if capacity == 0 {
		return newUnbuffered[T](cfg.spawner)
	}
	return newBuffered[T](capacity, cfg.spawner)
}
