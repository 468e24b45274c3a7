package netretry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestQueue_PriorityOrdering(t *testing.T) {
	q := newRequestQueue()
	now := time.Now()

	for _, p := range []Priority{PriorityLow, PriorityCritical, PriorityNormal, PriorityHigh} {
		q.push(Request{Name: p.String(), Priority: p}, now)
	}
	require.Equal(t, 4, q.length())

	var order []string
	for item := q.pop(); item != nil; item = q.pop() {
		order = append(order, item.request.Name)
	}
	assert.Equal(t, []string{"critical", "high", "normal", "low"}, order)
}

func TestRequestQueue_StableFIFOWithinPriority(t *testing.T) {
	q := newRequestQueue()
	now := time.Now()

	for _, name := range []string{"first", "second", "third"} {
		q.push(Request{Name: name, Priority: PriorityNormal}, now)
	}

	var order []string
	for item := q.pop(); item != nil; item = q.pop() {
		order = append(order, item.request.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRequestQueue_Reset(t *testing.T) {
	q := newRequestQueue()
	now := time.Now()

	q.push(Request{Name: "a", Priority: PriorityLow}, now)
	q.push(Request{Name: "b", Priority: PriorityHigh}, now)

	items := q.reset()
	assert.Len(t, items, 2)
	assert.Equal(t, 0, q.length())
	assert.Nil(t, q.pop())
}

func TestQueuedRequest_CompleteFiresOnce(t *testing.T) {
	q := newRequestQueue()
	item := q.push(Request{Name: "x", Priority: PriorityNormal}, time.Now())

	item.complete(assert.AnError)
	item.complete(nil) // second completion is a no-op

	assert.Equal(t, assert.AnError, <-item.done)
	select {
	case err := <-item.done:
		t.Fatalf("unexpected second completion: %v", err)
	default:
	}
}
