// internal/lb/invariants.go
package lb

import "fmt"

// InvariantError is the panic value raised when CheckInvariants is on and the
// balancer reaches an impossible state.
type InvariantError struct {
	Tick   int
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("lb: invariant violated at tick %d: %s", e.Tick, e.Detail)
}

func (lb *LoadBalancer) invariant(ok bool, format string, args ...any) {
	if ok {
		return
	}
	err := &InvariantError{Tick: lb.currentTime, Detail: fmt.Sprintf(format, args...)}
	lb.log.Error(err, "Invariant check failed")
	if lb.cfg.CheckInvariants {
		panic(err)
	}
}

// verify checks server bounds, pool consistency and request conservation.
func (lb *LoadBalancer) verify() {
	active := lb.pool.ActiveCount()
	lb.invariant(lb.activeServers >= 1 && lb.activeServers <= lb.cfg.MaxServers,
		"active servers %d outside [1, %d]", lb.activeServers, lb.cfg.MaxServers)
	lb.invariant(active == lb.activeServers,
		"pool reports %d active servers, balancer counts %d", active, lb.activeServers)

	inService := 0
	for _, srv := range lb.pool.GetAllServers() {
		lb.invariant(srv.Active() || !srv.Busy(), "inactive server %d holds %d tasks", srv.ID, srv.QueueLen())
		lb.invariant(srv.QueueLen() <= srv.Capacity(),
			"server %d holds %d tasks over capacity %d", srv.ID, srv.QueueLen(), srv.Capacity())
		inService += srv.QueueLen()
	}

	s := lb.stats
	accounted := lb.requestQueue.Len() + inService + s.Completed + s.Blocked
	lb.invariant(accounted == s.Generated,
		"%d requests generated but %d accounted for (queue %d, in service %d, completed %d, blocked %d)",
		s.Generated, accounted, lb.requestQueue.Len(), inService, s.Completed, s.Blocked)
}
