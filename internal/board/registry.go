// Package board implements the task-board domain model: users,
// projects, cards, and the workflow state machine over the four lists
// todo, inprogress, toberevised, and done.
package board

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/alessiodelgadillo/Worth/internal/auth"
)

// Registry owns the shared user and project collections. User and
// presence operations are reached from both the request loop and the
// subscription listener, so they take the registry lock. Project
// internals are only ever mutated from the request loop.
type Registry struct {
	mu       sync.Mutex
	users    []*User
	projects []*Project
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterUser creates an account with an argon2id-hashed credential.
func (r *Registry) RegisterUser(name, password string) error {
	if name == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidArgument)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == name {
			return fmt.Errorf("%w: username %s is taken", ErrAlreadyExists, name)
		}
	}
	r.users = append(r.users, &User{Name: name, PassHash: hash, State: Offline})
	return nil
}

// AddUser inserts an already-built user record, as read back from the
// snapshot store. Presence is forced offline.
func (r *Registry) AddUser(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.State = Offline
	u.Endpoint = netip.AddrPort{}
	r.users = append(r.users, u)
}

// User looks an account up by name.
func (r *Registry) User(name string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findUser(name)
}

func (r *Registry) findUser(name string) (*User, bool) {
	for _, u := range r.users {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Login verifies the credential and binds the caller endpoint to the
// account. A user may hold at most one session at a time.
func (r *Registry) Login(name, password string, ep netip.AddrPort) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.findUser(name)
	if !ok {
		auth.DummyVerify(password)
		return fmt.Errorf("%w: username %s", ErrNotFound, name)
	}
	ok, err := auth.VerifyPassword(password, u.PassHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongCredential
	}
	if u.State == Online {
		return ErrAlreadyOnline
	}
	u.State = Online
	u.Endpoint = ep
	return nil
}

// Logout clears the session bound to the caller endpoint and returns
// the username that was logged out.
func (r *Registry) Logout(ep netip.AddrPort) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.State == Online && u.Endpoint == ep {
			u.State = Offline
			u.Endpoint = netip.AddrPort{}
			return u.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no user logged in from this endpoint", ErrNotFound)
}

// Users returns a snapshot of the user records for persistence.
func (r *Registry) Users() []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*User, len(r.users))
	copy(out, r.users)
	return out
}

// PresenceMap returns the full username -> state mapping pushed to
// presence subscribers.
func (r *Registry) PresenceMap() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]string, len(r.users))
	for _, u := range r.users {
		m[u.Name] = string(u.State)
	}
	return m
}

// CreateProject adds a project; its chat group address comes from the
// address pool and is owned by the project until cancellation.
func (r *Registry) CreateProject(name, creator string, group netip.Addr, port int) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Name == name {
			return nil, fmt.Errorf("%w: project %s already exists", ErrAlreadyExists, name)
		}
	}
	p := NewProject(name, creator, group, port)
	r.projects = append(r.projects, p)
	return p, nil
}

// AddProject inserts a recovered project.
func (r *Registry) AddProject(p *Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = append(r.projects, p)
}

// Project looks a project up by name.
func (r *Registry) Project(name string) (*Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// RemoveProject drops a cancelled project from the registry.
func (r *Registry) RemoveProject(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.projects {
		if p.Name == name {
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			return
		}
	}
}

// ProjectsFor lists the names of the projects the user is a member of.
func (r *Registry) ProjectsFor(user string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.projects {
		if p.IsMember(user) {
			out = append(out, p.Name)
		}
	}
	return out
}
