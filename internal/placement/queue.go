package placement

import (
	"sync"

	"github.com/google/uuid"
)

// buildQueue holds ids of placed objects whose model has not been meshed yet.
type buildQueue struct {
	mu      sync.Mutex
	pending []uuid.UUID
}

func newBuildQueue() *buildQueue {
	return &buildQueue{}
}

func (q *buildQueue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, id)
}

// Drain removes up to max ids from the front of the queue. max <= 0 drains
// everything.
func (q *buildQueue) Drain(max int) []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.pending) {
		batch := q.pending
		q.pending = nil
		return batch
	}
	batch := append([]uuid.UUID(nil), q.pending[:max]...)
	q.pending = q.pending[max:]
	return batch
}

func (q *buildQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
