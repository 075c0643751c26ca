// Package wqueue implements the small FIFO queue of parked waiters that
// each channel keeps for its pending senders and pending receivers. It is
// not internally synchronized — callers hold the owning channel's spinlock
// across every operation, matching spec.md §4.4.
package wqueue

import "github.com/lemon-mint/go-chan/internal/waiter"

type node struct {
	w    *waiter.Waiter
	opID int
	next *node
	prev *node
}

// Queue is a doubly linked FIFO list of waiters, backed by a small free-node
// pool to avoid allocator traffic on the channel hot path. Each entry also
// carries the operation index it was registered under, so a channel can
// tell a select coordinator which of its operations a claimed waiter
// belongs to; plain (non-select) callers just pass 0 and ignore it on pop.
type Queue struct {
	head, tail *node
	free       *node
}

func (q *Queue) allocNode(w *waiter.Waiter, opID int) *node {
	if q.free != nil {
		n := q.free
		q.free = n.next
		n.w, n.opID, n.next, n.prev = w, opID, nil, nil
		return n
	}
	return &node{w: w, opID: opID}
}

func (q *Queue) freeNode(n *node) {
	n.w, n.prev = nil, nil
	n.next = q.free
	q.free = n
}

// PushBack enqueues w at the tail (normal arrival order).
func (q *Queue) PushBack(w *waiter.Waiter, opID int) {
	n := q.allocNode(w, opID)
	n.prev = q.tail
	if q.tail != nil {
		q.tail.next = n
	} else {
		q.head = n
	}
	q.tail = n
}

// PushFront re-enqueues w at the head, for a caller that must resume
// waiting after an interrupted wait without losing its queue priority.
func (q *Queue) PushFront(w *waiter.Waiter, opID int) {
	n := q.allocNode(w, opID)
	n.next = q.head
	if q.head != nil {
		q.head.prev = n
	} else {
		q.tail = n
	}
	q.head = n
}

// PopFront removes and returns the waiter at the head of the queue along
// with the operation index it was pushed with, or (nil, 0) if empty.
func (q *Queue) PopFront() (*waiter.Waiter, int) {
	n := q.head
	if n == nil {
		return nil, 0
	}
	q.remove(n)
	w, opID := n.w, n.opID
	q.freeNode(n)
	return w, opID
}

// PeekFront returns the waiter at the head of the queue without removing
// it, or nil if empty.
func (q *Queue) PeekFront() *waiter.Waiter {
	if q.head == nil {
		return nil
	}
	return q.head.w
}

// PeekFrontOp is PeekFront plus the operation index the head entry was
// pushed with, for a caller that must inspect a waiter before deciding
// whether to pop it (e.g. a select registration that must not remove a
// peer's entry unless its own CAS against that peer also succeeds).
func (q *Queue) PeekFrontOp() (*waiter.Waiter, int) {
	if q.head == nil {
		return nil, 0
	}
	return q.head.w, q.head.opID
}

// Empty reports whether the queue holds no waiters.
func (q *Queue) Empty() bool { return q.head == nil }

// Remove scans the queue for w and removes it if present. This is O(n);
// spec.md §4.4 accepts that cost for the select-cancellation path, which
// is not the hot path.
func (q *Queue) Remove(w *waiter.Waiter) bool {
	for n := q.head; n != nil; n = n.next {
		if n.w == w {
			q.remove(n)
			q.freeNode(n)
			return true
		}
	}
	return false
}

func (q *Queue) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}
}
