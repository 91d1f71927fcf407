// Package session maps authenticated network endpoints to logged-in
// users for the lifetime of their connection.
package session

import (
	"net/netip"
	"sync"
)

// Registry is the endpoint -> username binding. Lookups happen on
// every non-login command; bindings change only on login and logout.
type Registry struct {
	mu    sync.Mutex
	users map[netip.AddrPort]string
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{users: map[netip.AddrPort]string{}}
}

// Bind associates an endpoint with a logged-in user.
func (r *Registry) Bind(ep netip.AddrPort, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[ep] = user
}

// Clear drops the binding for an endpoint.
func (r *Registry) Clear(ep netip.AddrPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, ep)
}

// Lookup resolves the user logged in from an endpoint.
func (r *Registry) Lookup(ep netip.AddrPort) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[ep]
	return u, ok
}
