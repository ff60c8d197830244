// internal/firewall/registry.go
package firewall

import (
	"net/netip"
	"sort"
	"strings"
)

// Registry is the set of client addresses denied admission.
// It is filled once by Load and only read afterwards.
type Registry struct {
	addrs  map[string]struct{}
	source string
}

// NewRegistry returns a registry holding the given addresses. Entries are
// stored in canonical form; entries that do not parse are stored verbatim.
func NewRegistry(addrs ...string) *Registry {
	r := &Registry{addrs: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		r.addrs[canonical(a)] = struct{}{}
	}
	return r
}

// IsBlocked reports whether addr is in the registry.
func (r *Registry) IsBlocked(addr string) bool {
	if r == nil {
		return false
	}
	_, ok := r.addrs[canonical(addr)]
	return ok
}

// Len returns the number of blocked addresses.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.addrs)
}

// Source names where the registry was loaded from.
func (r *Registry) Source() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Addresses returns the blocked addresses in sorted order.
func (r *Registry) Addresses() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.addrs))
	for a := range r.addrs {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func canonical(addr string) string {
	addr = strings.TrimSpace(addr)
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return addr
	}
	return ip.Unmap().String()
}
