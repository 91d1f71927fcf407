// Package pool allocates multicast group addresses for project chat
// channels. Addresses released by cancelled projects are reused in
// FIFO order before a new one is minted.
package pool

import (
	"fmt"
	"net/netip"
	"sync"
)

// DefaultBase is the reserved bottom of the administratively scoped
// multicast range; the first issued address is the one above it.
var DefaultBase = netip.AddrFrom4([4]byte{239, 0, 0, 0})

// Pool hands out multicast addresses. The base itself is never
// issued; new addresses advance by big-endian increment across the
// four octets. An address is held by at most one live project and
// only returns to circulation through Release.
type Pool struct {
	mu       sync.Mutex
	last     netip.Addr
	recycled []netip.Addr
}

// New returns a pool minting addresses above base.
func New(base netip.Addr) (*Pool, error) {
	if !base.Is4() || !base.IsMulticast() {
		return nil, fmt.Errorf("pool base %s is not an IPv4 multicast address", base)
	}
	return &Pool{last: base}, nil
}

// Acquire returns the oldest recycled address, or mints the next one.
func (p *Pool) Acquire() netip.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recycled) > 0 {
		a := p.recycled[0]
		p.recycled = p.recycled[1:]
		return a
	}
	p.last = p.last.Next()
	return p.last
}

// Release queues an address for reuse.
func (p *Pool) Release(a netip.Addr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recycled = append(p.recycled, a)
}
