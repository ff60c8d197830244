// internal/server/model.go
package server

import (
	"errors"

	"elastic-lb-sim/internal/request"
)

var (
	// ErrCapacityExceeded is returned when a server's task queue is full.
	ErrCapacityExceeded = errors.New("server task queue is full")
	// ErrServerBusy is returned when deactivating a server that still has work.
	ErrServerBusy = errors.New("server still has pending tasks")
	// ErrInactive is returned when assigning work to an inactive server.
	ErrInactive = errors.New("server is not active")
)

// State is the activation state of a server in the pool.
type State int

const (
	StateInactive State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// Task is a request assigned to a server together with its outstanding work.
type Task struct {
	Request   request.Request
	Remaining int
}

// Server represents one backend worker with a bounded task queue.
// The head of the queue is the request currently in service.
type Server struct {
	ID       int
	state    State
	tasks    []Task
	capacity int

	// Served counts requests this server completed since its last activation.
	Served int
}

// NewServer creates an inactive server. A capacity below 1 is raised to 1.
func NewServer(id, capacity int) *Server {
	if capacity < 1 {
		capacity = 1
	}
	return &Server{ID: id, capacity: capacity}
}

// State returns the activation state.
func (s *Server) State() State { return s.state }

// Active reports whether the server participates in dispatch.
func (s *Server) Active() bool { return s.state == StateActive }

// QueueLen returns the number of assigned requests, including the one in service.
func (s *Server) QueueLen() int { return len(s.tasks) }

// Capacity returns the maximum queue length.
func (s *Server) Capacity() int { return s.capacity }

// Busy reports whether the server has work queued.
func (s *Server) Busy() bool { return len(s.tasks) > 0 }

// Idle reports whether the server is active with an empty queue.
func (s *Server) Idle() bool { return s.Active() && len(s.tasks) == 0 }

// HasSpareCapacity reports whether Assign would accept one more request.
func (s *Server) HasSpareCapacity() bool {
	return s.Active() && len(s.tasks) < s.capacity
}

// Assign queues a fresh request on the server.
func (s *Server) Assign(r request.Request) error {
	return s.AssignTask(Task{Request: r, Remaining: r.Work})
}

// AssignTask queues a task, keeping whatever work it has left.
func (s *Server) AssignTask(t Task) error {
	if !s.Active() {
		return ErrInactive
	}
	if len(s.tasks) >= s.capacity {
		return ErrCapacityExceeded
	}
	if t.Remaining < 1 {
		t.Remaining = 1
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Current returns the task in service, if any.
func (s *Server) Current() (Task, bool) {
	if len(s.tasks) == 0 {
		return Task{}, false
	}
	return s.tasks[0], true
}

// Step consumes one unit of work from the head task. When the head finishes
// it is removed and returned with done set.
func (s *Server) Step() (completed request.Request, done bool) {
	if !s.Active() || len(s.tasks) == 0 {
		return request.Request{}, false
	}
	s.tasks[0].Remaining--
	if s.tasks[0].Remaining > 0 {
		return request.Request{}, false
	}
	completed = s.tasks[0].Request
	s.tasks[0] = Task{}
	s.tasks = s.tasks[1:]
	s.Served++
	return completed, true
}

// Drain removes and returns every queued task, head first.
func (s *Server) Drain() []Task {
	out := s.tasks
	s.tasks = nil
	return out
}

func (s *Server) activate() {
	s.state = StateActive
	s.tasks = nil
	s.Served = 0
}

func (s *Server) deactivate() error {
	if len(s.tasks) > 0 {
		return ErrServerBusy
	}
	s.state = StateInactive
	return nil
}
