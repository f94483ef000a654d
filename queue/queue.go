// Package queue provides the bounded multi-producer/multi-consumer
// queue shared by the reactor's work queue and signal queue.
// SPEC_FULL.md §6.7 picks a bounded queue over an unbounded one for
// the natural backpressure it gives producers; this
// wraps gopkg.in/eapache/channels.v1's NativeChannel, a fixed-capacity
// channel-backed implementation of exactly that shape.
package queue

import (
	channels "gopkg.in/eapache/channels.v1"
)

// Queue is a bounded FIFO of T. Push blocks when full; Close must be
// called exactly once, after which In is no longer safe to Push and
// the Out channel closes once drained.
type Queue[T any] struct {
	ch channels.Channel
}

// New creates a Queue with the given capacity. Capacity <= 0 is
// treated as 1 (the underlying native channel requires a positive
// buffer size).
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: channels.NewNativeChannel(capacity)}
}

// Push enqueues v, blocking if the queue is at capacity.
func (q *Queue[T]) Push(v T) {
	q.ch.In() <- v
}

// TryPush enqueues v without blocking, reporting whether there was
// room.
func (q *Queue[T]) TryPush(v T) bool {
	select {
	case q.ch.In() <- v:
		return true
	default:
		return false
	}
}

// Out exposes the receive side for direct use in a select statement
// (workers block on this alongside their halt channel).
func (q *Queue[T]) Out() <-chan interface{} {
	return q.ch.Out()
}

// Pop blocks until an item is available or the queue is closed, in
// which case ok is false.
func (q *Queue[T]) Pop() (v T, ok bool) {
	raw, ok := <-q.ch.Out()
	if !ok {
		return v, false
	}
	return raw.(T), true
}

// TryPop removes and returns one item without blocking. ok is false
// if the queue is currently empty (it says nothing about whether the
// queue is closed).
func (q *Queue[T]) TryPop() (v T, ok bool) {
	select {
	case raw, open := <-q.ch.Out():
		if !open {
			return v, false
		}
		return raw.(T), true
	default:
		return v, false
	}
}

// Len reports the number of items currently buffered.
func (q *Queue[T]) Len() int {
	return q.ch.Len()
}

// Close shuts the queue down; pending items already buffered may
// still be drained by Pop, but no further Push is valid afterwards.
func (q *Queue[T]) Close() {
	q.ch.Close()
}

// Drain removes and discards every item currently buffered, without
// closing the queue. Used by the Reactor's shutdown drain to clear the
// work queue before posting shutdown sentinels (shutdown work items
// are enqueued after the queue is cleared, so in-flight queued frames
// are dropped, not drained).
func (q *Queue[T]) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch.Out():
			n++
		default:
			return n
		}
	}
}
