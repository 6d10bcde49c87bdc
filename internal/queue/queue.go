// Package queue provides a small FIFO used as a hand-off buffer in front of
// outbound requests.
package queue

import "sync"

// Queue is a thread-safe FIFO backed by a doubly linked list.
type Queue[T any] struct {
	mu   sync.Mutex
	head *node[T] // next to dequeue
	tail *node[T] // most recently enqueued
	size int
}

type node[T any] struct {
	value T
	prev  *node[T]
	next  *node[T]
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends v to the back of the queue.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := &node[T]{value: v, prev: q.tail}
	if q.tail != nil {
		q.tail.next = n
	}
	q.tail = n
	if q.head == nil {
		q.head = n
	}
	q.size++
}

// Dequeue removes and returns the front element. ok is false when the queue is empty.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return v, false
	}
	n := q.head
	q.remove(n)
	return n.value, true
}

// Len reports the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue[T]) remove(n *node[T]) {
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
	n.prev, n.next = nil, nil
	q.size--
}
