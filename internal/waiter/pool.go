package waiter

import (
	"sync/atomic"
	"unsafe"

	"github.com/lemon-mint/go-chan/spawn"
)

// maxPooled bounds how many idle waiters (and their kernel gates) a Pool
// keeps around, per spec.md §3 ("the pool caps itself at a small constant
// (e.g., 256 per type)").
const maxPooled = 256

type poolNode struct {
	w    *Waiter
	next unsafe.Pointer // *poolNode
}

// Pool is a lock-free LIFO stack recycling Waiters (and their embedded
// kernel gates) to amortize allocation under contention.
type Pool struct {
	head    unsafe.Pointer // *poolNode
	size    int32          // atomic, approximate count of live pooled nodes
	spawner spawn.Spawner
}

// NewPool returns an empty pool whose waiters dispatch deferred Notify
// continuations through spawner (nil selects spawn.Default).
func NewPool(spawner spawn.Spawner) *Pool {
	if spawner == nil {
		spawner = spawn.Default
	}
	return &Pool{spawner: spawner}
}

// Obtain pops a waiter from the pool, resetting it to Ready, or constructs
// a new one if the pool is empty.
func (p *Pool) Obtain() *Waiter {
	for {
		head := atomic.LoadPointer(&p.head)
		if head == nil {
			w := newWaiter(p.spawner)
			w.resetForReuse()
			return w
		}
		node := (*poolNode)(head)
		next := atomic.LoadPointer(&node.next)
		if atomic.CompareAndSwapPointer(&p.head, head, next) {
			atomic.AddInt32(&p.size, -1)
			w := node.w
			w.resetForReuse()
			return w
		}
	}
}

// Release returns w to the pool for reuse. A waiter released with a
// dangling payload or a state outside {Ready, Done, DoubleSelect}
// indicates a bug in the caller, not a user error, and is fatal. The
// counter is not checked: Semaphore.Reset forces it back to zero (and
// panics only if a Notify continuation is still pending).
func (p *Pool) Release(w *Waiter) {
	switch w.State() {
	case Ready, Done, DoubleSelect:
	default:
		panic("waiter: released in illegal state " + w.State().String())
	}
	if w.Payload() != nil {
		panic("waiter: released with a dangling payload")
	}
	w.Semaphore.Reset()

	if atomic.LoadInt32(&p.size) >= maxPooled {
		// Surplus waiter: Reset already drained its gate synchronously
		// above, so there is nothing left to tear down. Let it (and its
		// kernel gate) be garbage collected instead of growing the pool
		// without bound.
		return
	}

	node := &poolNode{w: w}
	for {
		head := atomic.LoadPointer(&p.head)
		node.next = head
		if atomic.CompareAndSwapPointer(&p.head, head, unsafe.Pointer(node)) {
			atomic.AddInt32(&p.size, 1)
			return
		}
	}
}
