// internal/lb/admission.go
package lb

import (
	"elastic-lb-sim/internal/events"
	"elastic-lb-sim/internal/firewall"
	"elastic-lb-sim/internal/request"
)

// LoadBlockedIPs replaces the blocklist with the contents of source. The old
// list stays in place when source cannot be read or contains a bad entry.
func (lb *LoadBalancer) LoadBlockedIPs(source string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.loadBlockedIPs(source)
}

func (lb *LoadBalancer) loadBlockedIPs(source string) error {
	reg, err := firewall.Load(source)
	if err != nil {
		lb.log.Error(err, "Failed to load blocked IPs", "source", source)
		return err
	}
	lb.blockedIPs = reg
	if source != "" {
		lb.emit(events.OutputEvent, "Loaded blocked IP addresses", "count", reg.Len(), "source", source)
	}
	return nil
}

// IsBlocked reports whether addr is on the blocklist.
func (lb *LoadBalancer) IsBlocked(addr string) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.blockedIPs.IsBlocked(addr)
}

// AddRandomRequest builds a request from the generator, stamps it with the
// current tick and runs it through admission.
func (lb *LoadBalancer) AddRandomRequest() (request.Request, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return request.Request{}, false
	}
	spec := lb.generator.Next()
	req := request.New(spec.Origin, spec.Destination, lb.currentTime, spec.Work)
	return req, lb.admit(req)
}

// Submit runs an externally built request through admission.
func (lb *LoadBalancer) Submit(req request.Request) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.closed {
		return false
	}
	return lb.admit(req)
}

// LogBlockedRequest records a rejected request on the firewall channel.
func (lb *LoadBalancer) LogBlockedRequest(req request.Request, reason string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.logBlockedRequest(req, reason)
}

func (lb *LoadBalancer) logBlockedRequest(req request.Request, reason string) {
	lb.emit(events.BlockedEvent, "Blocked request",
		"ip", req.Origin, "destination", req.Destination, "request", req.ID, "reason", reason)
}

func (lb *LoadBalancer) admit(req request.Request) bool {
	lb.stats.Generated++
	if lb.blockedIPs.IsBlocked(req.Origin) {
		lb.stats.Blocked++
		if lb.metrics != nil {
			lb.metrics.RecordBlocked()
		}
		lb.logBlockedRequest(req, "origin is on the blocklist")
		return false
	}
	lb.requestQueue.Push(req)
	lb.stats.Admitted++
	if lb.metrics != nil {
		lb.metrics.RecordAdmitted()
	}
	lb.emit(events.AdmittedEvent, "New request added", "request", req.String(), "queue", lb.requestQueue.Len())
	return true
}
