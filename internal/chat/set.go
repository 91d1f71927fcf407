package chat

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
)

// Set tracks one client's open chat channels keyed by project, so
// every receive task can be cancelled explicitly on logout instead of
// lingering until a sentinel arrives.
type Set struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewSet returns an empty channel set.
func NewSet() *Set {
	return &Set{channels: map[string]*Channel{}}
}

// Join opens the channel for a project; joining a project twice
// returns the existing channel.
func (s *Set) Join(project string, group netip.AddrPort, ifi *net.Interface) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.channels[project]; ok {
		return c, nil
	}
	c, err := Join(group, ifi)
	if err != nil {
		return nil, err
	}
	s.channels[project] = c
	return c, nil
}

// Channel returns the open channel for a project.
func (s *Set) Channel(project string) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[project]
	if !ok {
		return nil, fmt.Errorf("no chat joined for project %s", project)
	}
	return c, nil
}

// CloseAll cancels every receive task, for client logout.
func (s *Set) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.channels {
		_ = c.Close()
		delete(s.channels, name)
	}
}
