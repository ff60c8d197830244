// internal/lb/scale.go
package lb

import (
	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/request"
	"elastic-lb-sim/internal/scaling"
	"elastic-lb-sim/internal/server"
)

// ManageServerLoad asks the scaling controller for a decision and applies it.
func (lb *LoadBalancer) ManageServerLoad() scaling.Decision {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return scaling.Decision{Action: scaling.Hold, Reason: "closed"}
	}
	return lb.manageServerLoad()
}

// ScaleUp activates one more server. It returns false at max_servers.
func (lb *LoadBalancer) ScaleUp() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return false
	}
	return lb.scaleUp("requested")
}

// ScaleDown deactivates the highest-id idle server. It returns false when
// only one server is active or when no more than ScaleDownIdleFraction of
// the active servers are idle.
func (lb *LoadBalancer) ScaleDown() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return false
	}
	idle := lb.idleServerCount()
	if idle == 0 || float64(idle) <= lb.cfg.Policy.ScaleDownIdleFraction*float64(lb.activeServers) {
		return false
	}
	return lb.scaleDown("requested")
}

func (lb *LoadBalancer) manageServerLoad() scaling.Decision {
	d := lb.controller.Evaluate(scaling.Signals{
		AverageQueue: lb.averageQueueSize(),
		Idle:         lb.idleServerCount(),
		Active:       lb.activeServers,
		Max:          lb.cfg.MaxServers,
		Backlog:      lb.requestQueue.Len(),
	})
	switch d.Action {
	case scaling.ScaleUp:
		lb.scaleUp(d.Reason)
	case scaling.ScaleDown:
		lb.scaleDown(d.Reason)
	}
	return d
}

func (lb *LoadBalancer) scaleUp(reason string) bool {
	if lb.activeServers >= lb.cfg.MaxServers {
		return false
	}
	srv := lb.pool.Activate()
	if srv == nil {
		lb.invariant(false, "pool has no inactive server with %d/%d active", lb.activeServers, lb.cfg.MaxServers)
		return false
	}
	lb.activeServers++
	if lb.metrics != nil {
		lb.metrics.RecordScale(scaling.ScaleUp.String())
	}
	lb.emit(events.ScaleEvent, ">> SCALED UP: Added server",
		"server", srv.ID, "active", lb.activeServers, "max", lb.cfg.MaxServers, "reason", reason)
	return true
}

// scaleDown removes the highest-id idle server. If the chosen server turns
// out to be busy its tasks are redistributed before it is deactivated.
func (lb *LoadBalancer) scaleDown(reason string) bool {
	if lb.activeServers <= 1 {
		return false
	}
	active := lb.pool.Active()
	victim := active[len(active)-1]
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].Idle() {
			victim = active[i]
			break
		}
	}

	if victim.Busy() {
		others := make([]*server.Server, 0, len(active)-1)
		for _, srv := range active {
			if srv != victim {
				others = append(others, srv)
			}
		}
		lb.redistribute(victim, others)
	}

	if err := lb.pool.Deactivate(victim.ID); err != nil {
		lb.invariant(false, "deactivating server %d: %v", victim.ID, err)
		return false
	}
	lb.activeServers--
	if lb.metrics != nil {
		lb.metrics.RecordScale(scaling.ScaleDown.String())
	}
	lb.emit(events.ScaleEvent, ">> SCALED DOWN: Removed server",
		"server", victim.ID, "active", lb.activeServers, "max", lb.cfg.MaxServers, "reason", reason)
	return true
}

// redistribute moves every task off victim. Tasks keep their remaining work
// when another server has room; the rest go back to the head of the request
// queue in their original order and start over.
func (lb *LoadBalancer) redistribute(victim *server.Server, others []*server.Server) {
	var overflow []request.Request
	for _, task := range victim.Drain() {
		target := Pick(others)
		if target == nil || target.AssignTask(task) != nil {
			overflow = append(overflow, task.Request)
			continue
		}
		lb.stats.Redistributed++
		lb.emit(events.DispatchEvent, "Redistributed request",
			"from", victim.ID, "server", target.ID, "request", task.Request.String(), "remaining", task.Remaining)
	}
	if len(overflow) > 0 {
		lb.requestQueue.PushFront(overflow...)
		lb.stats.Requeued += len(overflow)
		lb.emit(events.OutputEvent, "Requeued requests from removed server",
			"server", victim.ID, "count", len(overflow))
	}
}
