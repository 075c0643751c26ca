package wqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemon-mint/go-chan/internal/waiter"
)

func popW(q *Queue) *waiter.Waiter {
	w, _ := q.PopFront()
	return w
}

func TestFIFOOrder(t *testing.T) {
	pool := waiter.NewPool(nil)
	a, b, c := pool.Obtain(), pool.Obtain(), pool.Obtain()

	var q Queue
	q.PushBack(a, 1)
	q.PushBack(b, 2)
	q.PushBack(c, 3)

	assert.Same(t, a, popW(&q))
	assert.Same(t, b, popW(&q))
	assert.Same(t, c, popW(&q))
	assert.Nil(t, popW(&q))
}

func TestPopFrontReturnsOperationID(t *testing.T) {
	pool := waiter.NewPool(nil)
	a, b := pool.Obtain(), pool.Obtain()

	var q Queue
	q.PushBack(a, 7)
	q.PushBack(b, 9)

	w, opID := q.PopFront()
	assert.Same(t, a, w)
	assert.Equal(t, 7, opID)

	w, opID = q.PopFront()
	assert.Same(t, b, w)
	assert.Equal(t, 9, opID)
}

func TestPushFrontPrioritizesReinsertion(t *testing.T) {
	pool := waiter.NewPool(nil)
	a, b := pool.Obtain(), pool.Obtain()

	var q Queue
	q.PushBack(a, 0)
	q.PushFront(b, 0)

	assert.Same(t, b, popW(&q))
	assert.Same(t, a, popW(&q))
}

func TestPeekFrontDoesNotRemove(t *testing.T) {
	pool := waiter.NewPool(nil)
	a := pool.Obtain()

	var q Queue
	q.PushBack(a, 0)

	require.Same(t, a, q.PeekFront())
	require.Same(t, a, q.PeekFront())
	assert.Same(t, a, popW(&q))
	assert.True(t, q.Empty())
}

func TestRemoveMidQueue(t *testing.T) {
	pool := waiter.NewPool(nil)
	a, b, c := pool.Obtain(), pool.Obtain(), pool.Obtain()

	var q Queue
	q.PushBack(a, 0)
	q.PushBack(b, 0)
	q.PushBack(c, 0)

	require.True(t, q.Remove(b))
	assert.False(t, q.Remove(b), "removing twice should report not-found")

	assert.Same(t, a, popW(&q))
	assert.Same(t, c, popW(&q))
	assert.True(t, q.Empty())
}

func TestNodesAreRecycled(t *testing.T) {
	pool := waiter.NewPool(nil)
	a, b := pool.Obtain(), pool.Obtain()

	var q Queue
	q.PushBack(a, 0)
	popW(&q)
	q.PushBack(b, 0) // should reuse the freed node internally; behavior-only check
	assert.Same(t, b, popW(&q))
}
