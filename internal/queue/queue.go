// Package queue buffers rows between the event handlers and the batch
// writer of a storage backend.
package queue

import "sync"

// Queue is a mutex-guarded append buffer. Producers Push from handler
// goroutines; the writer takes everything at once with Drain.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Drain hands over the buffered items in push order. The caller owns the
// returned slice; later pushes start a fresh backing array.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
