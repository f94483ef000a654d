package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Push(2)
	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestTryPopEmpty(t *testing.T) {
	q := New[int](4)
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestTryPushFull(t *testing.T) {
	q := New[int](1)
	require.True(t, q.TryPush(1))
	require.False(t, q.TryPush(2))
}

func TestDrain(t *testing.T) {
	q := New[int](8)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	require.Equal(t, 3, q.Drain())
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestClosePop(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Close()
	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = q.Pop()
	require.False(t, ok)
}

func TestLen(t *testing.T) {
	q := New[string](4)
	q.Push("a")
	q.Push("b")
	require.Equal(t, 2, q.Len())
}
