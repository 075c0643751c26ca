package gochan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeNegativeCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { Make[int](-1) })
}

func TestMakeZeroCapacityIsUnbuffered(t *testing.T) {
	ch := Make[int](0)
	_, ok := ch.(*unbufferedChan[int])
	assert.True(t, ok)
}

func TestMakePositiveCapacityIsBuffered(t *testing.T) {
	ch := Make[int](5)
	_, ok := ch.(*bufferedChan[int])
	assert.True(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	ch := Make[int](1)
	ch.Close()
	assert.NotPanics(t, func() { ch.Close() })
	assert.True(t, ch.IsClosed())
}

func TestForEachVisitsUntilClosed(t *testing.T) {
	ch := Make[int](4)
	go func() {
		ch.Send(1)
		ch.Send(2)
		ch.Send(3)
		ch.Close()
	}()

	var got []int
	ForEach[int](ch, func(v int) { got = append(got, v) })
	assert.Equal(t, []int{1, 2, 3}, got)
}
