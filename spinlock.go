package gochan

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a short-hold test-and-test-and-set lock. Real kernel
// spinlocks are deprecated on modern systems (spec.md §9 Design Notes); this
// re-implements the same "spin a few times, then yield" discipline instead.
// It must only ever guard short, branch-free critical sections and must
// never be held across a call that can block (in particular, never across
// waiter.Wait).
type spinlock struct {
	state int32
}

const spinsBeforeYield = 4

func (l *spinlock) Lock() {
	spins := 0
	for {
		if atomic.LoadInt32(&l.state) == 0 && atomic.CompareAndSwapInt32(&l.state, 0, 1) {
			return
		}
		spins++
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

func (l *spinlock) Unlock() {
	atomic.StoreInt32(&l.state, 0)
}
