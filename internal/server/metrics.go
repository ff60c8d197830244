// internal/server/metrics.go
package server

// Status is a point-in-time view of one server.
type Status struct {
	ID          int     `json:"id"`
	State       string  `json:"state"`
	QueueLen    int     `json:"queueLen"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
	Served      int     `json:"served"`
}

// Utilization converts the queue length to [0..1] of capacity.
func (s *Server) Utilization() float64 {
	return float64(len(s.tasks)) / float64(s.capacity)
}

// Status returns a snapshot of the server.
func (s *Server) Status() Status {
	return Status{
		ID:          s.ID,
		State:       s.state.String(),
		QueueLen:    len(s.tasks),
		Capacity:    s.capacity,
		Utilization: s.Utilization(),
		Served:      s.Served,
	}
}
