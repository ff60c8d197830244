// internal/lb/tick.go
package lb

import (
	"fmt"

	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/logging"
	"elastic-lb-sim/internal/metrics"
	"elastic-lb-sim/internal/server"
)

// Snapshot is a read-only view of the balancer after a tick.
type Snapshot struct {
	Tick          int             `json:"tick"`
	QueueLen      int             `json:"queueLen"`
	ActiveServers int             `json:"activeServers"`
	MaxServers    int             `json:"maxServers"`
	IdleServers   int             `json:"idleServers"`
	AverageQueue  float64         `json:"averageQueue"`
	Servers       []server.Status `json:"servers"`
	Stats         Stats           `json:"stats"`
}

// Sample converts the snapshot into a metrics sample.
func (s Snapshot) Sample() metrics.Sample {
	return metrics.Sample{
		Tick:         s.Tick,
		QueueLen:     s.QueueLen,
		Active:       s.ActiveServers,
		Max:          s.MaxServers,
		Idle:         s.IdleServers,
		AverageQueue: s.AverageQueue,
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Queue size: %d | Active servers: %d/%d | Idle servers: %d",
		s.QueueLen, s.ActiveServers, s.MaxServers, s.IdleServers)
}

// Tick advances the simulation by one time unit: dispatch queued requests,
// let every active server do one unit of work, then rescale.
func (lb *LoadBalancer) Tick() Snapshot {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return Snapshot{}
	}

	lb.currentTime++
	lb.dispatch()
	lb.stepServers()
	lb.manageServerLoad()
	if lb.cfg.CheckInvariants {
		lb.verify()
	}

	snap := lb.snapshot()
	if lb.metrics != nil {
		lb.metrics.Observe(snap.Sample())
	}
	return snap
}

// Snapshot returns the current state without advancing time.
func (lb *LoadBalancer) Snapshot() Snapshot {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.snapshot()
}

// HasActiveTasks reports whether any request is queued or in service.
func (lb *LoadBalancer) HasActiveTasks() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.hasActiveTasks()
}

// AverageQueueSize is the mean task queue length over active servers.
func (lb *LoadBalancer) AverageQueueSize() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.averageQueueSize()
}

// IdleServerCount is the number of active servers with nothing to do.
func (lb *LoadBalancer) IdleServerCount() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.idleServerCount()
}

func (lb *LoadBalancer) dispatch() {
	active := lb.pool.Active()
	for lb.requestQueue.Len() > 0 {
		target := Pick(active)
		if target == nil {
			return
		}
		req, _ := lb.requestQueue.Pop()
		if err := target.Assign(req); err != nil {
			lb.requestQueue.PushFront(req)
			lb.log.V(logging.DEBUG).Info("Dispatch deferred", "server", target.ID, "err", err)
			return
		}
		lb.stats.Dispatched++
		lb.emit(events.DispatchEvent, "Assigned new request",
			"server", target.ID, "request", req.String(), "server_queue", target.QueueLen())
	}
}

func (lb *LoadBalancer) stepServers() {
	for _, srv := range lb.pool.Active() {
		req, done := srv.Step()
		if !done {
			continue
		}
		lb.stats.Completed++
		if lb.metrics != nil {
			lb.metrics.RecordCompleted()
		}
		lb.emit(events.CompletedEvent, "Completed request",
			"server", srv.ID, "request", req.String(), "latency", lb.currentTime-req.Arrival)
	}
}

func (lb *LoadBalancer) snapshot() Snapshot {
	snap := Snapshot{
		Tick:          lb.currentTime,
		QueueLen:      lb.requestQueue.Len(),
		ActiveServers: lb.activeServers,
		MaxServers:    lb.cfg.MaxServers,
		Stats:         lb.stats,
	}
	if lb.closed {
		return snap
	}
	snap.IdleServers = lb.idleServerCount()
	snap.AverageQueue = lb.averageQueueSize()
	for _, srv := range lb.pool.GetAllServers() {
		snap.Servers = append(snap.Servers, srv.Status())
	}
	return snap
}

func (lb *LoadBalancer) hasActiveTasks() bool {
	if lb.closed {
		return false
	}
	if lb.requestQueue.Len() > 0 {
		return true
	}
	for _, srv := range lb.pool.Active() {
		if srv.Busy() {
			return true
		}
	}
	return false
}

func (lb *LoadBalancer) averageQueueSize() float64 {
	active := lb.pool.Active()
	if len(active) == 0 {
		return 0
	}
	total := 0
	for _, srv := range active {
		total += srv.QueueLen()
	}
	return float64(total) / float64(len(active))
}

func (lb *LoadBalancer) idleServerCount() int {
	n := 0
	for _, srv := range lb.pool.Active() {
		if srv.Idle() {
			n++
		}
	}
	return n
}
