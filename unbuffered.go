package gochan

import (
	"unsafe"

	"github.com/lemon-mint/go-chan/internal/waiter"
	"github.com/lemon-mint/go-chan/internal/wqueue"
	"github.com/lemon-mint/go-chan/spawn"
)

// unbufferedChan is a zero-capacity rendezvous channel per spec.md §4.6:
// no storage, every completed transfer is a direct sender/receiver
// hand-off. At any moment (outside a brief transfer window under the
// lock) at most one of senders/receivers is non-empty, because any newly
// arrived member of one side is immediately matched against the front of
// the other.
type unbufferedChan[T any] struct {
	lock spinlock

	senders   wqueue.Queue
	receivers wqueue.Queue

	closed bool

	pool *waiter.Pool
}

func newUnbuffered[T any](spawner spawn.Spawner) *unbufferedChan[T] {
	return &unbufferedChan[T]{pool: waiter.NewPool(spawner)}
}

// Send implements spec.md §4.6: block until a receiver rendezvouses or the
// channel closes.
func (c *unbufferedChan[T]) Send(value T) bool {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return false
	}

	if c.matchReceiverLocked(value) {
		c.lock.Unlock()
		return true
	}

	w := c.pool.Obtain()
	w.SetState(waiter.Pointer)
	v := value
	w.AttachPayload(unsafe.Pointer(&v))
	c.senders.PushBack(w, 0)
	c.lock.Unlock()

	w.Wait()
	ok := w.Outcome()
	w.DetachPayload()
	c.pool.Release(w)
	return ok
}

// Receive implements spec.md §4.6, symmetric to Send.
func (c *unbufferedChan[T]) Receive() (T, bool) {
	var zero T
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return zero, false
	}

	if v, ok := c.matchSenderLocked(); ok {
		c.lock.Unlock()
		return v, true
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
	if !ok {
		return zero, false
	}
	return v, true
}

// matchReceiverLocked attempts to hand value to the front of receivers.
// Called with the lock held. It keeps trying subsequent entries when one
// is stale (CAS loss, the usual select-skip case).
func (c *unbufferedChan[T]) matchReceiverLocked(value T) bool {
	for {
		w, opID := c.receivers.PopFront()
		if w == nil {
			return false
		}
		switch w.State() {
		case waiter.Pointer:
			v := value
			w.AttachPayload(unsafe.Pointer(&v))
			w.SetOutcome(true)
			w.SetState(waiter.Done)
			w.Signal()
			return true
		case waiter.WaitSelect:
			if w.TrySetSelection(waiter.DoubleSelect, waiter.Selection{OperationID: opID, Ticket: value}) {
				w.Signal()
				return true
			}
			// Stale: lost to another channel in its select. Discard and
			// try the next entry.
		}
	}
}

// matchSenderLocked is the receive-side mirror of matchReceiverLocked.
func (c *unbufferedChan[T]) matchSenderLocked() (T, bool) {
	var zero T
	for {
		w, opID := c.senders.PopFront()
		if w == nil {
			return zero, false
		}
		switch w.State() {
		case waiter.Pointer:
			p := w.DetachPayload()
			var v T
			if p != nil {
				v = *(*T)(p)
			}
			w.SetOutcome(true)
			w.SetState(waiter.Done)
			w.Signal()
			return v, true
		case waiter.WaitSelect:
			p := w.Payload()
			if p == nil {
				continue
			}
			v := *(*T)(p)
			if w.TrySetSelection(waiter.DoubleSelect, waiter.Selection{OperationID: opID, Ticket: v}) {
				w.Signal()
				return v, true
			}
		}
	}
}

// Close implements spec.md §4.6: wakes every parked waiter. Mid-rendezvous
// operations (payload already written) are not aborted; only waiters still
// genuinely parked observe the invalidated outcome.
func (c *unbufferedChan[T]) Close() {
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
	for {
		w, _ := c.receivers.PopFront()
		if w == nil {
			break
		}
		invalidate(w)
	}
	c.lock.Unlock()
}

func (c *unbufferedChan[T]) IsClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// TrySelectSend is the non-blocking probe: it only succeeds if a receiver
// is already parked (Pointer) or registered (WaitSelect), never by parking
// itself.
func (c *unbufferedChan[T]) TrySelectSend(value T) (waiter.Selection, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return waiter.Selection{}, false
	}
	if c.matchReceiverLocked(value) {
		return waiter.Selection{Ticket: value}, true
	}
	return waiter.Selection{}, false
}

// TrySelectReceive mirrors TrySelectSend.
func (c *unbufferedChan[T]) TrySelectReceive() (waiter.Selection, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return waiter.Selection{}, false
	}
	if v, ok := c.matchSenderLocked(); ok {
		return waiter.Selection{Ticket: v}, true
	}
	return waiter.Selection{}, false
}

// AwaitSelectSend opportunistically matches against an already-parked or
// already-registered receiver under the channel lock; if no match exists it
// registers w (carrying value) on the senders queue. A WaitSelect peer's own
// CAS into DoubleSelect is attempted before our w is committed into Select,
// so a stale peer (already claimed by another channel in its own select)
// never leaves w stranded in a terminal state with nothing transferred;
// scanning resumes at the next queue entry instead. Only once a peer is
// actually won does w's own CAS run.
func (c *unbufferedChan[T]) AwaitSelectSend(w *waiter.Waiter, opID int, value T) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		if w.SetState(waiter.Invalidated) {
			w.Signal()
		}
		return
	}

	for {
		peer, peerOpID := c.receivers.PeekFrontOp()
		if peer == nil {
			break
		}
		switch peer.State() {
		case waiter.Pointer:
			if !w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID}) {
				return
			}
			c.receivers.PopFront()
			v := value
			peer.AttachPayload(unsafe.Pointer(&v))
			peer.SetOutcome(true)
			peer.SetState(waiter.Done)
			peer.Signal()
			w.Signal()
			return
		case waiter.WaitSelect:
			c.receivers.PopFront()
			if !peer.TrySetSelection(waiter.DoubleSelect, waiter.Selection{OperationID: peerOpID, Ticket: value}) {
				// Stale: peer already resolved via another channel in its
				// own select. Our own w was never touched; try the next
				// entry.
				continue
			}
			if !w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID}) {
				// Our own select already resolved through a different
				// operand. peer already holds its ticket and will wake
				// regardless.
				peer.Signal()
				return
			}
			peer.Signal()
			w.Signal()
			return
		default:
			c.receivers.PopFront()
		}
	}

	v := value
	w.BindPendingValue(unsafe.Pointer(&v))
	c.senders.PushBack(w, opID)
}

// AwaitSelectReceive mirrors AwaitSelectSend.
func (c *unbufferedChan[T]) AwaitSelectReceive(w *waiter.Waiter, opID int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		if w.SetState(waiter.Invalidated) {
			w.Signal()
		}
		return
	}

	for {
		peer, peerOpID := c.senders.PeekFrontOp()
		if peer == nil {
			break
		}
		switch peer.State() {
		case waiter.Pointer:
			p := peer.Payload()
			var v T
			if p != nil {
				v = *(*T)(p)
			}
			if !w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID, Ticket: v}) {
				return
			}
			c.senders.PopFront()
			peer.DetachPayload()
			peer.SetOutcome(true)
			peer.SetState(waiter.Done)
			peer.Signal()
			w.Signal()
			return
		case waiter.WaitSelect:
			p := peer.Payload()
			if p == nil {
				c.senders.PopFront()
				continue
			}
			v := *(*T)(p)
			c.senders.PopFront()
			if !peer.TrySetSelection(waiter.DoubleSelect, waiter.Selection{OperationID: peerOpID, Ticket: v}) {
				// Stale: peer already resolved elsewhere. Our own w was
				// never touched; try the next entry.
				continue
			}
			if !w.TrySetSelection(waiter.Select, waiter.Selection{OperationID: opID, Ticket: v}) {
				// Our own select already resolved through a different
				// operand. peer already holds its ticket and will wake
				// regardless.
				peer.Signal()
				return
			}
			peer.Signal()
			w.Signal()
			return
		default:
			c.senders.PopFront()
		}
	}

	c.receivers.PushBack(w, opID)
}

// CommitSend completes a previously won send selection. The hand-off
// already happened under the lock in AwaitSelectSend/TrySelectSend.
func (c *unbufferedChan[T]) CommitSend(sel waiter.Selection) bool {
	return true
}

// CommitReceive completes a previously won receive selection, reading the
// value carried through sel.Ticket.
func (c *unbufferedChan[T]) CommitReceive(sel waiter.Selection) (T, bool) {
	v, _ := sel.Ticket.(T)
	return v, true
}

// Deregister removes w from whichever queue currently holds it.
func (c *unbufferedChan[T]) Deregister(w *waiter.Waiter) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.senders.Remove(w)
	c.receivers.Remove(w)
}
