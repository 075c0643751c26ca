// Package waiter implements the reusable per-operation synchronization
// object shared by blocking channel sends/receives and select: a counted
// semaphore plus a small CAS-guarded state machine, an optional payload
// pointer, and an optional selection record.
package waiter

import (
	"sync/atomic"
	"unsafe"

	"github.com/lemon-mint/go-chan/internal/sema"
	"github.com/lemon-mint/go-chan/spawn"
)

// State is one node of the waiter's state machine.
type State int32

const (
	// Ready means the waiter is idle and available to be bound to a new
	// operation (or is sitting in the pool).
	Ready State = iota
	// Pointer means the waiter is parked on a simple (non-select) send or
	// receive; Payload holds the value being transferred.
	Pointer
	// WaitSelect means the waiter has been registered with one or more
	// channels on behalf of a select call and is parked waiting for the
	// first one to claim it.
	WaitSelect
	// Select means a channel has claimed this waiter directly: Selection
	// identifies the winning operation and the payload is exchanged
	// through this same waiter.
	Select
	// DoubleSelect means an unbuffered channel's counterparty claimed this
	// select waiter directly; Selection identifies the winning operation
	// and its Ticket carries the transferred value (no intermediary waiter
	// is involved).
	DoubleSelect
	// Invalidated means every channel the waiter was registered with
	// closed before any of them could claim it.
	Invalidated
	// Done is the terminal state after a transfer completes; reachable
	// unconditionally from any non-Ready state.
	Done
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Pointer:
		return "Pointer"
	case WaitSelect:
		return "WaitSelect"
	case Select:
		return "Select"
	case DoubleSelect:
		return "DoubleSelect"
	case Invalidated:
		return "Invalidated"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Selection identifies the winning branch of a select call: OperationID is
// the index into the owning Select call's operand list, and Ticket is an
// opaque value a channel attaches for its own commit step to consume; its
// concrete type is a private detail of whichever channel produced it.
type Selection struct {
	OperationID int
	Ticket      any
}

// legalPredecessors lists, for every non-Ready, non-Done target state, the
// states a CAS is allowed to originate from.
var legalPredecessors = map[State][]State{
	Pointer:      {Ready},
	WaitSelect:   {Ready},
	Select:       {WaitSelect},
	DoubleSelect: {WaitSelect},
	Invalidated:  {WaitSelect},
}

// Waiter is a reusable synchronization gate. The zero value is not usable;
// obtain one from a Pool.
type Waiter struct {
	*sema.Semaphore

	state   int32 // atomic State
	payload unsafe.Pointer

	selection Selection

	// outcome is set by whichever party signals Done on a simple
	// (non-select) waiter: true if the operation completed, false if the
	// wake was caused by the channel closing with nothing delivered. It is
	// only read by the waiter's own owner after Wait returns, which is
	// always sequenced after the write by the Done transition's Signal.
	outcome bool
}

func newWaiter(spawner spawn.Spawner) *Waiter {
	return &Waiter{Semaphore: sema.New(spawner)}
}

// State returns the current state.
func (w *Waiter) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// SetState attempts the CAS transition into target from whichever
// predecessor state is currently legal. Transitioning into Done always
// succeeds (the source's "Done" transition is unconditional). It reports
// whether the transition took effect.
func (w *Waiter) SetState(target State) bool {
	if target == Done {
		atomic.StoreInt32(&w.state, int32(Done))
		return true
	}
	for _, from := range legalPredecessors[target] {
		if atomic.CompareAndSwapInt32(&w.state, int32(from), int32(target)) {
			return true
		}
	}
	return false
}

// resetForReuse forces the waiter back to Ready. Only the pool may call
// this, and only on a waiter it is about to hand out.
func (w *Waiter) resetForReuse() {
	atomic.StoreInt32(&w.state, int32(Ready))
	atomic.StorePointer(&w.payload, nil)
	w.selection = Selection{}
	w.outcome = false
}

// AttachPayload stores p if (and only if) the waiter is currently in a
// state that accepts a payload (Pointer or DoubleSelect). It is a no-op
// otherwise.
func (w *Waiter) AttachPayload(p unsafe.Pointer) {
	switch w.State() {
	case Pointer, DoubleSelect:
		atomic.StorePointer(&w.payload, p)
	}
}

// BindPendingValue stores p unconditionally. It exists for a select-send
// registration (state WaitSelect): the value to send is owned by the
// registering goroutine and must be visible to whichever counterparty
// later wins the CAS into Select, long before that counterparty exists.
// Safe because the store happens-before the waiter is published onto a
// channel's queue under that channel's own lock.
func (w *Waiter) BindPendingValue(p unsafe.Pointer) {
	atomic.StorePointer(&w.payload, p)
}

// Payload returns the currently attached payload pointer, or nil.
func (w *Waiter) Payload() unsafe.Pointer {
	return atomic.LoadPointer(&w.payload)
}

// DetachPayload returns the currently attached payload pointer and clears
// it unconditionally (unlike AttachPayload, it is not gated by state): the
// caller has already established, by construction, that it has exclusive
// access to a terminal waiter and is about to release it to a Pool, which
// rejects a waiter released with a dangling payload.
func (w *Waiter) DetachPayload() unsafe.Pointer {
	p := atomic.LoadPointer(&w.payload)
	atomic.StorePointer(&w.payload, nil)
	return p
}

// SetOutcome records the result of a simple (non-select) wake. Call it
// before the state transition to Done that Signals the waiter awake, so
// the write happens-before the owner's Wait returns.
func (w *Waiter) SetOutcome(ok bool) { w.outcome = ok }

// Outcome returns the result recorded by SetOutcome. Only meaningful after
// Wait returns on a waiter used for a simple send/receive.
func (w *Waiter) Outcome() bool { return w.outcome }

// TrySetSelection attempts the CAS transition WaitSelect -> target
// (target is Select or DoubleSelect) and, only if it succeeds, attaches
// sel. Because the CAS is the single serialization point, the plain field
// write after a won CAS is race-free: every other channel racing for this
// waiter will observe the state change and fail its own CAS.
func (w *Waiter) TrySetSelection(target State, sel Selection) bool {
	if target != Select && target != DoubleSelect {
		panic("waiter: TrySetSelection target must be Select or DoubleSelect")
	}
	if !w.SetState(target) {
		return false
	}
	w.selection = sel
	return true
}

// SetSelection attaches sel unconditionally. Only call this immediately
// after a SetState CAS into Select or DoubleSelect has already succeeded —
// that CAS is what serializes ownership; this write is then race-free
// because every loser of the CAS has already moved on.
func (w *Waiter) SetSelection(sel Selection) {
	w.selection = sel
}

// Selection returns the selection attached by a winning CAS into Select or
// DoubleSelect. Only meaningful once State reports one of those two.
func (w *Waiter) Selection() Selection {
	return w.selection
}
