// internal/queue/queue.go
package queue

import "elastic-lb-sim/internal/request"

// Queue is the global FIFO of requests not yet assigned to a server.
type Queue struct {
	items []request.Request
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a request at the tail.
func (q *Queue) Push(r request.Request) {
	q.items = append(q.items, r)
}

// PushFront puts requests back at the head, keeping their relative order.
func (q *Queue) PushFront(rs ...request.Request) {
	if len(rs) == 0 {
		return
	}
	items := make([]request.Request, 0, len(rs)+len(q.items))
	items = append(items, rs...)
	q.items = append(items, q.items...)
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (request.Request, bool) {
	if len(q.items) == 0 {
		return request.Request{}, false
	}
	head := q.items[0]
	q.items[0] = request.Request{}
	q.items = q.items[1:]
	return head, true
}

// Peek returns the head without removing it.
func (q *Queue) Peek() (request.Request, bool) {
	if len(q.items) == 0 {
		return request.Request{}, false
	}
	return q.items[0], true
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	return len(q.items)
}

// Drain empties the queue and returns what it held, head first.
func (q *Queue) Drain() []request.Request {
	out := q.items
	q.items = nil
	return out
}
