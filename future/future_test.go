package future

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillThenGetResult(t *testing.T) {
	f := New[int]()
	require.NoError(t, f.SetValue(42))

	v, err := f.GetResult()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestGetResultBlocksUntilFilled(t *testing.T) {
	f := New[string]()

	done := make(chan string, 1)
	go func() {
		v, _ := f.GetResult()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("GetResult returned before Fill")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, f.SetValue("ready"))

	select {
	case v := <-done:
		assert.Equal(t, "ready", v)
	case <-time.After(time.Second):
		t.Fatal("GetResult never returned after SetValue")
	}
}

func TestSecondFillIsRejected(t *testing.T) {
	f := New[int]()
	require.NoError(t, f.SetValue(1))
	err := f.SetValue(2)
	assert.Error(t, err)

	v, _ := f.GetResult()
	assert.Equal(t, 1, v, "the first fill wins")
}

func TestCancelSetsErrFutureCanceled(t *testing.T) {
	f := New[int]()
	f.Cancel()

	_, err := f.GetResult()
	assert.True(t, errors.Is(err, ErrCanceled))
}

func TestWaitChannelClosesOnFill(t *testing.T) {
	f := New[int]()
	wc := f.WaitChannel()
	require.False(t, wc.IsClosed())

	require.NoError(t, f.SetValue(9))

	assert.True(t, wc.IsClosed())
	_, ok := wc.Receive()
	assert.False(t, ok, "a closed channel's Receive reports the drained/closed case")
}
