package notify

import (
	"context"
	"sync"
)

// MemoryQueue buffers deliveries in memory. Development and test use; a
// restart loses the queue, which is acceptable for notifications.
type MemoryQueue struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Dispatch(_ context.Context, deliveries []Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deliveries = append(q.deliveries, deliveries...)
	return nil
}

// Drain returns and clears everything queued so far.
func (q *MemoryQueue) Drain() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.deliveries
	q.deliveries = nil
	return out
}
