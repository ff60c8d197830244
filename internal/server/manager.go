// internal/server/manager.go
package server

import (
	"fmt"
	"sync"
)

// Pool holds a fixed set of servers, of which only some are active.
// Servers are created once and toggled between inactive and active.
type Pool struct {
	mu      sync.RWMutex
	servers []*Server
}

// NewPool creates size inactive servers with ids 0..size-1.
func NewPool(size, capacity int) *Pool {
	servers := make([]*Server, size)
	for i := range servers {
		servers[i] = NewServer(i, capacity)
	}
	return &Pool{servers: servers}
}

// Size returns the number of servers in the pool, active or not.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.servers)
}

// GetAllServers returns a copy of the server slice, ordered by id.
func (p *Pool) GetAllServers() []*Server {
	p.mu.RLock()
	defer p.mu.RUnlock()

	serversCopy := make([]*Server, len(p.servers))
	copy(serversCopy, p.servers)
	return serversCopy
}

// Active returns the active servers ordered by id.
func (p *Pool) Active() []*Server {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var active []*Server
	for _, srv := range p.servers {
		if srv.Active() {
			active = append(active, srv)
		}
	}
	return active
}

// ActiveCount returns how many servers are active.
func (p *Pool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, srv := range p.servers {
		if srv.Active() {
			n++
		}
	}
	return n
}

// Activate turns on the lowest-id inactive server with an empty queue.
// It returns nil when every server is already active.
func (p *Pool) Activate() *Server {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, srv := range p.servers {
		if !srv.Active() {
			srv.activate()
			return srv
		}
	}
	return nil
}

// Deactivate turns off an idle active server.
func (p *Pool) Deactivate(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || id >= len(p.servers) {
		return fmt.Errorf("server %d: not in pool", id)
	}
	srv := p.servers[id]
	if !srv.Active() {
		return fmt.Errorf("server %d: %w", id, ErrInactive)
	}
	if err := srv.deactivate(); err != nil {
		return fmt.Errorf("server %d: %w", id, err)
	}
	return nil
}

// Release drops every server. The pool is unusable afterwards.
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, srv := range p.servers {
		srv.tasks = nil
		srv.state = StateInactive
	}
	p.servers = nil
}
