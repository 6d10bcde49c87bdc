package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New[string]()

	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := New[int]()

	v, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestQueue_InterleavedPairsLeaveItEmpty(t *testing.T) {
	q := New[string]()

	for _, url := range []string{"u1", "u2", "u3"} {
		q.Enqueue(url)
		got, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, url, got)
		assert.Zero(t, q.Len())
	}

	q.Enqueue("x")
	got, _ := q.Dequeue()
	assert.Equal(t, "x", got)
	q.Enqueue("y")
	q.Enqueue("z")
	got, _ = q.Dequeue()
	assert.Equal(t, "y", got, "tail must be reset after draining")
	got, _ = q.Dequeue()
	assert.Equal(t, "z", got)
}
