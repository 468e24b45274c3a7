package netretry

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority orders queued requests. Higher values drain first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the priority name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// queuedRequest is a request buffered while offline, waiting to be replayed.
type queuedRequest struct {
	enqueuedAt time.Time
	done       chan error
	request    Request
	id         uuid.UUID
	seq        uint64
	once       sync.Once
}

// complete fires the completion exactly once.
func (q *queuedRequest) complete(err error) {
	q.once.Do(func() {
		q.done <- err
	})
}

// requestHeap orders by priority (critical first) and, within equal
// priority, by enqueue sequence (stable FIFO).
type requestHeap []*queuedRequest

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].request.Priority != h[j].request.Priority {
		return h[i].request.Priority > h[j].request.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) {
	*h = append(*h, x.(*queuedRequest))
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// requestQueue is the in-memory offline buffer. It is inert while offline;
// the executor drains it on reconnect.
type requestQueue struct {
	mu    sync.Mutex
	items requestHeap
	seq   uint64
}

func newRequestQueue() *requestQueue {
	return &requestQueue{}
}

func (q *requestQueue) push(req Request, now time.Time) *queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	item := &queuedRequest{
		id:         uuid.New(),
		request:    req,
		enqueuedAt: now,
		seq:        q.seq,
		done:       make(chan error, 1),
	}
	heap.Push(&q.items, item)
	return item
}

func (q *requestQueue) pop() *queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(&q.items).(*queuedRequest)
}

func (q *requestQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// reset removes and returns every pending item.
func (q *requestQueue) reset() []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]*queuedRequest, 0, len(q.items))
	for len(q.items) > 0 {
		items = append(items, heap.Pop(&q.items).(*queuedRequest))
	}
	return items
}
