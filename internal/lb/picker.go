// internal/lb/picker.go
package lb

import "elastic-lb-sim/internal/server"

// Pick returns the server with the shortest task queue among those that can
// take one more request. Ties go to the lowest id. It returns nil when every
// server is full or inactive.
func Pick(servers []*server.Server) *server.Server {
	var best *server.Server
	for _, srv := range servers {
		if !srv.HasSpareCapacity() {
			continue
		}
		if best == nil ||
			srv.QueueLen() < best.QueueLen() ||
			(srv.QueueLen() == best.QueueLen() && srv.ID < best.ID) {
			best = srv
		}
	}
	return best
}
