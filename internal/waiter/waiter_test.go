package waiter

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalStateTransitions(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()
	require.Equal(t, Ready, w.State())

	require.True(t, w.SetState(WaitSelect))
	require.Equal(t, WaitSelect, w.State())

	require.True(t, w.SetState(Select))
	require.Equal(t, Select, w.State())

	require.True(t, w.SetState(Done))
	require.Equal(t, Done, w.State())
}

func TestIllegalTransitionFails(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()

	// Ready -> Select is not a legal direct move.
	require.False(t, w.SetState(Select))
	require.Equal(t, Ready, w.State())
}

func TestOnlyOneSelectorWinsTheCAS(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()
	require.True(t, w.SetState(WaitSelect))

	first := w.TrySetSelection(Select, Selection{OperationID: 1})
	second := w.TrySetSelection(Select, Selection{OperationID: 2})

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, w.Selection().OperationID)
}

func TestAttachPayloadOnlyInAcceptingStates(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()

	var v int = 42
	w.AttachPayload(unsafe.Pointer(&v))
	assert.Nil(t, w.Payload(), "Ready state must reject an attached payload")

	require.True(t, w.SetState(Pointer))
	w.AttachPayload(unsafe.Pointer(&v))
	require.NotNil(t, w.Payload())
	assert.Equal(t, 42, *(*int)(w.Payload()))
}

func TestPoolRoundTrip(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()
	require.True(t, w.SetState(Pointer))
	require.True(t, w.SetState(Done))

	pool.Release(w)

	w2 := pool.Obtain()
	assert.Equal(t, Ready, w2.State())
	assert.Nil(t, w2.Payload())
}

func TestReleaseInIllegalStatePanics(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()
	require.True(t, w.SetState(WaitSelect))

	assert.Panics(t, func() { pool.Release(w) })
}

func TestReleaseWithDanglingPayloadPanics(t *testing.T) {
	pool := NewPool(nil)
	w := pool.Obtain()
	require.True(t, w.SetState(Pointer))
	var v int
	w.AttachPayload(unsafe.Pointer(&v))
	require.True(t, w.SetState(Done))

	assert.Panics(t, func() { pool.Release(w) })
}
