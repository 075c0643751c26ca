package gochan

import (
	"math/rand"

	"github.com/lemon-mint/go-chan/internal/chanset"
	"github.com/lemon-mint/go-chan/internal/waiter"
)

// selectable is the internal protocol a Channel[T] implementation exposes
// to the select coordinator (spec.md §4.5/§4.6's try_select_*/
// await_select_*/commit_* surface). It is deliberately not part of the
// public Channel[T] interface: ordinary callers only send/receive/close.
type selectable[T any] interface {
	TrySelectSend(value T) (waiter.Selection, bool)
	TrySelectReceive() (waiter.Selection, bool)
	AwaitSelectSend(w *waiter.Waiter, opID int, value T)
	AwaitSelectReceive(w *waiter.Waiter, opID int)
	CommitSend(sel waiter.Selection) bool
	CommitReceive(sel waiter.Selection) (T, bool)
	Deregister(w *waiter.Waiter)
}

// OutcomeKind identifies which of the four shapes a select call resolved
// to, per spec.md §6's SelectOutcome.
type OutcomeKind int

const (
	// OutcomeSent means the Op at Index was a SendOp that completed.
	OutcomeSent OutcomeKind = iota
	// OutcomeReceived means the Op at Index was a ReceiveOp that
	// completed; Value holds the delivered element.
	OutcomeReceived
	// OutcomeDefault means TrySelect found no immediately ready operation.
	OutcomeDefault
	// OutcomeAllClosed means every channel named by the operation list
	// was closed (and, for receives, drained) before any could commit.
	OutcomeAllClosed
)

// Outcome is the result of a Select or TrySelect call.
type Outcome struct {
	Kind  OutcomeKind
	Index int
	Value any
}

// Op is one operand of a Select call: a send with a value already bound,
// or a receive. Build one with Send or Recv.
type Op struct {
	channel    any
	try        func() (waiter.Selection, bool)
	await      func(w *waiter.Waiter, opID int)
	commit     func(sel waiter.Selection) Outcome
	deregister func(w *waiter.Waiter)
}

// Send builds a send operand for Select/TrySelect. value is consumed
// (moved) only if this operand is the one that commits.
func Send[T any](ch Channel[T], value T) Op {
	sc := mustSelectable[T](ch)
	return Op{
		channel: sc,
		try: func() (waiter.Selection, bool) {
			return sc.TrySelectSend(value)
		},
		await: func(w *waiter.Waiter, opID int) {
			sc.AwaitSelectSend(w, opID, value)
		},
		commit: func(sel waiter.Selection) Outcome {
			sc.CommitSend(sel)
			return Outcome{Kind: OutcomeSent}
		},
		deregister: sc.Deregister,
	}
}

// Recv builds a receive operand for Select/TrySelect.
func Recv[T any](ch Channel[T]) Op {
	sc := mustSelectable[T](ch)
	return Op{
		channel: sc,
		try: func() (waiter.Selection, bool) {
			return sc.TrySelectReceive()
		},
		await: func(w *waiter.Waiter, opID int) {
			sc.AwaitSelectReceive(w, opID)
		},
		commit: func(sel waiter.Selection) Outcome {
			v, _ := sc.CommitReceive(sel)
			return Outcome{Kind: OutcomeReceived, Value: v}
		},
		deregister: sc.Deregister,
	}
}

func mustSelectable[T any](ch Channel[T]) selectable[T] {
	sc, ok := ch.(selectable[T])
	if !ok {
		fatal("channel does not implement the select protocol")
	}
	return sc
}

// selectWaiters is the process-wide pool of shared waiters used only by
// Select's slow path, distinct from each channel's own pool of plain
// send/receive waiters (spec.md §5: "no global mutable state is shared
// across channels except the process-wide waiter pool").
var selectWaiters = waiter.NewPool(nil)

// TrySelect implements spec.md §4.7 steps 1–3: shuffle, probe every
// operand once, and report OutcomeDefault if none was immediately ready.
// It never blocks.
func TrySelect(ops []Op) Outcome {
	order := shuffled(len(ops))
	for _, i := range order {
		if sel, ok := ops[i].try(); ok {
			out := ops[i].commit(sel)
			out.Index = i
			return out
		}
	}
	return Outcome{Kind: OutcomeDefault}
}

// Select implements spec.md §4.7 in full: a fast probe, then — if nothing
// was immediately ready — the slow path of registering one shared waiter
// across every operand and blocking until exactly one commits or every
// channel is closed.
func Select(ops []Op) Outcome {
	order := shuffled(len(ops))
	for _, i := range order {
		if sel, ok := ops[i].try(); ok {
			out := ops[i].commit(sel)
			out.Index = i
			return out
		}
	}

	w := selectWaiters.Obtain()
	w.SetState(waiter.WaitSelect)

	for _, i := range order {
		if w.State() != waiter.WaitSelect {
			// Already resolved by an earlier registration in this same
			// loop: a channel we registered with earlier found a
			// counterparty and committed w before we finished registering
			// every operand.
			break
		}
		ops[i].await(w, i)
	}

	w.Wait()

	var out Outcome
	switch w.State() {
	case waiter.Select, waiter.DoubleSelect:
		sel := w.Selection()
		out = ops[sel.OperationID].commit(sel)
		out.Index = sel.OperationID
		deregisterExcept(ops, w, sel.OperationID)
	default: // Invalidated: every channel closed before any could commit.
		out = Outcome{Kind: OutcomeAllClosed}
		deregisterExcept(ops, w, -1)
	}

	w.DetachPayload()
	w.SetState(waiter.Done)
	selectWaiters.Release(w)
	return out
}

// deregisterExcept eagerly removes w from every operand's channel queue
// other than the winner (spec.md §9 Open Question: chosen over leaving
// stale entries for a later CAS-skip). chanset dedupes repeated channels
// in the operand list so Remove is never called twice for the same queue.
func deregisterExcept(ops []Op, w *waiter.Waiter, winner int) {
	seen := chanset.New[any]()
	for i, op := range ops {
		if i == winner || seen.Exists(op.channel) {
			continue
		}
		seen.Add(op.channel)
		op.deregister(w)
	}
}

func shuffled(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}
