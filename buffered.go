package gochan

import (
	"unsafe"

	"github.com/lemon-mint/go-chan/internal/waiter"
	"github.com/lemon-mint/go-chan/internal/wqueue"
	"github.com/lemon-mint/go-chan/spawn"
)

// bufferedChan is a bounded, ring-backed channel per spec.md §4.5: a
// power-of-two ring buffer, two FIFO waiter queues (pending senders,
// pending receivers), a spinlock, and the next_put/next_get reservation
// counters that let a select participant be promised a slot before the
// value is actually copied into it.
type bufferedChan[T any] struct {
	lock spinlock

	ring []T
	mask uint64

	head, tail       uint64
	nextPut, nextGet uint64

	senders   wqueue.Queue
	receivers wqueue.Queue

	closed bool

	pool *waiter.Pool
}

func newBuffered[T any](capacity int, spawner spawn.Spawner) *bufferedChan[T] {
	size := nextPowerOfTwo(capacity)
	return &bufferedChan[T]{
		ring: make([]T, size),
		mask: uint64(size - 1),
		pool: waiter.NewPool(spawner),
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Send implements spec.md §4.5's send algorithm.
func (c *bufferedChan[T]) Send(value T) bool {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return false
	}

	for c.nextPut-c.head >= uint64(len(c.ring)) && !c.closed {
		w := c.pool.Obtain()
		w.SetState(waiter.Pointer)
		c.senders.PushBack(w, 0)
		c.lock.Unlock()

		w.Wait()
		ok := w.Outcome()
		c.pool.Release(w)
		if !ok {
			return false
		}
		c.lock.Lock()
	}

	if c.closed {
		c.lock.Unlock()
		return false
	}

	c.nextPut++
	c.ring[c.tail&c.mask] = value
	c.tail++

	c.wakeCounterparty()
	c.lock.Unlock()
	return true
}

// Receive implements spec.md §4.5's receive algorithm, symmetric to Send.
func (c *bufferedChan[T]) Receive() (T, bool) {
	var zero T
	c.lock.Lock()

	for c.tail-c.nextGet == 0 {
		if c.closed {
			c.lock.Unlock()
			return zero, false
		}
		w := c.pool.Obtain()
		w.SetState(waiter.Pointer)
		c.receivers.PushBack(w, 0)
		c.lock.Unlock()

		w.Wait()
		ok := w.Outcome()
		var v T
		if ok {
			if p := w.DetachPayload(); p != nil {
				v = *(*T)(p)
			}
		}
		c.pool.Release(w)
		if ok {
			return v, true
		}
		return zero, false
	}

	c.nextGet++
	v := c.ring[c.head&c.mask]
	var clear T
	c.ring[c.head&c.mask] = clear
	c.head++

	c.wakeCounterparty()
	c.lock.Unlock()
	return v, true
}

// wakeCounterparty is called with the lock held, immediately after a send
// reserved a slot or a receive freed one. It wakes at most one receiver
// (while an unclaimed element remains) and then at most one sender (while a
// free slot remains); the sender loop runs whether or not a receiver was
// woken. In each queue it skips entries whose CAS into Ready/Select
// fails — spec.md §4.5 "the first waiter in FIFO order whose
// CAS succeeds wins; waiters with state not in {Ready, WaitSelect} are
// discarded (another branch of the select won)".
func (c *bufferedChan[T]) wakeCounterparty() {
	for c.tail-c.nextGet > 0 {
		w, opID := c.receivers.PopFront()
		if w == nil {
			break
		}
		if c.wakeReceiver(w, opID) {
			break
		}
	}
	for c.nextPut-c.head < uint64(len(c.ring)) {
		w, opID := c.senders.PopFront()
		if w == nil {
			break
		}
		if c.wakeSender(w, opID) {
			break
		}
	}
}

// wakeReceiver attempts to hand slot head (about to become head+1) to w, a
// parked plain receiver or a select participant. Returns whether it
// succeeded; on failure the reservation it tentatively made is rolled back
// so the slot remains visible to the next candidate.
func (c *bufferedChan[T]) wakeReceiver(w *waiter.Waiter, opID int) bool {
	switch w.State() {
	case waiter.Pointer:
		c.nextGet++
		v := c.ring[c.head&c.mask]
		var clear T
		c.ring[c.head&c.mask] = clear
		c.head++
		w.AttachPayload(unsafe.Pointer(&v))
		w.SetOutcome(true)
		w.SetState(waiter.Done)
		w.Signal()
		return true
	case waiter.WaitSelect:
		c.nextGet++
		v := c.ring[c.head&c.mask]
		var clear T
		c.ring[c.head&c.mask] = clear
		c.head++
		if w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID, Ticket: v}) {
			w.Signal()
			return true
		}
		c.nextGet--
		c.head--
		c.ring[c.head&c.mask] = v
		return false
	default:
		return false
	}
}

// wakeSender attempts to let w claim the slot just freed by a receive.
// A plain (Pointer) sender is simply woken and writes its own value into
// the ring once its own Send call resumes; a selecting sender's value was
// bound to the waiter at registration time (BindPendingValue), since the
// registering goroutine — not this one — owns it.
func (c *bufferedChan[T]) wakeSender(w *waiter.Waiter, opID int) bool {
	switch w.State() {
	case waiter.Pointer:
		w.SetOutcome(true)
		w.SetState(waiter.Done)
		w.Signal()
		return true
	case waiter.WaitSelect:
		p := w.Payload()
		if p == nil {
			return false
		}
		if w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID}) {
			v := *(*T)(p)
			c.nextPut++
			c.ring[c.tail&c.mask] = v
			c.tail++
			w.Signal()
			return true
		}
		return false
	default:
		return false
	}
}

// Close implements spec.md §4.5 Close: idempotent, wakes every parked
// waiter (senders observe failure; receivers drain remaining values).
func (c *bufferedChan[T]) Close() {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true

	for {
		w, _ := c.senders.PopFront()
		if w == nil {
			break
		}
		invalidate(w)
	}

	for c.tail-c.nextGet > 0 {
		w, opID := c.receivers.PopFront()
		if w == nil {
			break
		}
		c.wakeReceiver(w, opID)
	}
	for {
		w, _ := c.receivers.PopFront()
		if w == nil {
			break
		}
		invalidate(w)
	}

	c.lock.Unlock()
}

// invalidate wakes a parked waiter with failure (plain wait) or the
// Invalidated state (select wait), per spec.md §4.6's close semantics.
func invalidate(w *waiter.Waiter) {
	switch w.State() {
	case waiter.Pointer:
		w.SetOutcome(false)
		w.SetState(waiter.Done)
		w.Signal()
	case waiter.WaitSelect:
		if w.SetState(waiter.Invalidated) {
			w.Signal()
		}
	}
}

func (c *bufferedChan[T]) IsClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// TrySelectSend implements spec.md §4.5's non-blocking selection helper.
func (c *bufferedChan[T]) TrySelectSend(value T) (waiter.Selection, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return waiter.Selection{}, false
	}

	if w := c.receivers.PeekFront(); w != nil && w.State() == waiter.Pointer {
		c.receivers.PopFront()
		w.AttachPayload(unsafe.Pointer(&value))
		w.SetOutcome(true)
		w.SetState(waiter.Done)
		w.Signal()
		return waiter.Selection{Ticket: value}, true
	}

	if c.nextPut-c.head >= uint64(len(c.ring)) {
		return waiter.Selection{}, false
	}
	c.nextPut++
	c.ring[c.tail&c.mask] = value
	c.tail++
	c.wakeCounterparty()
	return waiter.Selection{Ticket: value}, true
}

// TrySelectReceive mirrors TrySelectSend.
func (c *bufferedChan[T]) TrySelectReceive() (waiter.Selection, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.tail-c.nextGet == 0 {
		return waiter.Selection{}, false
	}
	c.nextGet++
	v := c.ring[c.head&c.mask]
	var clear T
	c.ring[c.head&c.mask] = clear
	c.head++
	c.wakeCounterparty()
	return waiter.Selection{Ticket: v}, true
}

// AwaitSelectSend registers w on the senders queue, binding value to the
// waiter so a future receive can commit it without the sender's goroutine
// being involved (per spec.md §4.7 step 4).
func (c *bufferedChan[T]) AwaitSelectSend(w *waiter.Waiter, opID int, value T) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		if w.SetState(waiter.Invalidated) {
			w.Signal()
		}
		return
	}
	v := value
	w.BindPendingValue(unsafe.Pointer(&v))
	c.senders.PushBack(w, opID)
}

// AwaitSelectReceive registers w on the receivers queue.
func (c *bufferedChan[T]) AwaitSelectReceive(w *waiter.Waiter, opID int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		if w.SetState(waiter.Invalidated) {
			w.Signal()
		}
		return
	}
	c.receivers.PushBack(w, opID)
}

// CommitSend completes a previously won send selection. The ring write
// already happened under the lock in wakeSender/TrySelectSend; this just
// reports success.
func (c *bufferedChan[T]) CommitSend(sel waiter.Selection) bool {
	return true
}

// CommitReceive completes a previously won receive selection. The value
// was already read out of the ring under the lock in wakeReceiver/
// TrySelectReceive and is carried through sel.Ticket.
func (c *bufferedChan[T]) CommitReceive(sel waiter.Selection) (T, bool) {
	v, _ := sel.Ticket.(T)
	return v, true
}

// Deregister removes w from whichever internal queue currently holds it
// (eager scrubbing per spec.md §9's stale-waiter Open Question, resolved in
// DESIGN.md in favor of eager deregistration over CAS-skip-only).
func (c *bufferedChan[T]) Deregister(w *waiter.Waiter) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.senders.Remove(w)
	c.receivers.Remove(w)
}
