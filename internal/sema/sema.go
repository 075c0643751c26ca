// Package sema implements the counted semaphore leaf described by the
// channel runtime's waiter primitive: a decrement-then-maybe-block,
// increment-then-maybe-wake counter with a per-instance kernel gate and a
// non-blocking Notify path for deferred wakeups.
package sema

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/lemon-mint/go-chan/spawn"
)

// Semaphore is a classical counting semaphore. The zero value is not usable;
// construct with New.
//
// wait callers are released in the order the underlying gate wakes them,
// which for a single contended waiter (the common case here, since each
// Semaphore is privately owned by one Waiter) is trivially FIFO.
type Semaphore struct {
	value int64 // atomic
	gate  chan struct{}

	spawner spawn.Spawner

	mu      sync.Mutex
	pending []func()
}

// New returns a ready semaphore with an initial count of 0 that dispatches
// deferred Notify continuations through spawner. A nil spawner defaults to
// spawn.Default.
func New(spawner spawn.Spawner) *Semaphore {
	if spawner == nil {
		spawner = spawn.Default
	}
	return &Semaphore{
		gate:    make(chan struct{}, 1),
		spawner: spawner,
	}
}

// Reset prepares s for reuse from a pool: the counter is forced back to 0
// and any stray gate token is drained. It panics if a Notify continuation
// is still pending, since that indicates the waiter was recycled while a
// counterparty still expected a wakeup — an InvariantViolation.
func (s *Semaphore) Reset() {
	s.mu.Lock()
	pending := len(s.pending)
	s.pending = nil
	s.mu.Unlock()
	if pending != 0 {
		panic("sema: reused with pending Notify continuations")
	}
	atomic.StoreInt64(&s.value, 0)
	select {
	case <-s.gate:
	default:
	}
}

// Wait decrements the counter. If the result is non-negative the caller
// proceeds immediately; otherwise it blocks until a matching Signal.
func (s *Semaphore) Wait() {
	if atomic.AddInt64(&s.value, -1) >= 0 {
		return
	}
	<-s.gate
}

// Signal increments the counter. If the pre-increment value was negative,
// it wakes exactly one party: a queued Notify continuation if one is
// waiting, otherwise the blocked Wait caller via the gate.
func (s *Semaphore) Signal() {
	v := atomic.AddInt64(&s.value, 1)
	if v == math.MinInt64 {
		panic("sema: counter overflow")
	}
	if v > 0 {
		return
	}

	s.mu.Lock()
	if len(s.pending) > 0 {
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.spawner.Go(fn)
		return
	}
	s.mu.Unlock()
	s.gate <- struct{}{}
}

// Notify decrements the counter. If the result is non-negative, fn runs
// inline on the calling goroutine. Otherwise fn is queued and will be
// dispatched on a background thread (via the configured Spawner) by a
// later Signal — the caller never blocks.
func (s *Semaphore) Notify(fn func()) {
	if atomic.AddInt64(&s.value, -1) >= 0 {
		fn()
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}
