package ringqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New[int](3)
	require.Error(t, err)
}

func TestPushPopFIFO(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)

	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestPushFailsWhenFull(t *testing.T) {
	q, err := New[int](2)
	require.NoError(t, err)

	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	assert.False(t, q.Push(3))
}

func TestPopFailsWhenEmpty(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestCapacityNeverExceeded(t *testing.T) {
	q, err := New[int](8)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		q.Push(i)
		assert.LessOrEqual(t, q.Len(), q.Cap())
	}
}

func TestWrapAroundPreservesOrder(t *testing.T) {
	q, err := New[int](4)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, q.Push(i))
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q, err := New[int](256)
	require.NoError(t, err)

	const n = 100000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			for !q.Push(i) {
			}
		}
	}()

	for i := 0; i < n; i++ {
		var v int
		var ok bool
		for !ok {
			v, ok = q.Pop()
		}
		assert.Equal(t, i, v)
	}
	<-done
}
