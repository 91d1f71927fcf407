package chat

import (
	"net"
	"net/netip"
	"sync"

	"golang.org/x/net/ipv4"
)

// Channel is a client's membership in one project chat group. A
// single background task blocks on the group socket and queues
// incoming messages; it terminates on the close sentinel or when the
// channel is closed explicitly.
type Channel struct {
	group netip.AddrPort
	conn  *net.UDPConn

	mu     sync.Mutex
	unread []string
	closed bool

	done chan struct{}
}

// Join subscribes to a project chat group on the given interface (nil
// selects the system default) and starts the receive task.
func Join(group netip.AddrPort, ifi *net.Interface) (*Channel, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(group.Port())})
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: group.Addr().AsSlice()}); err != nil {
		conn.Close()
		return nil, err
	}
	return newChannel(group, conn), nil
}

// newChannel wraps an already-bound socket; split out from Join so
// the receive loop can be exercised without multicast routing.
func newChannel(group netip.AddrPort, conn *net.UDPConn) *Channel {
	c := &Channel{group: group, conn: conn, done: make(chan struct{})}
	go c.receive()
	return c
}

func (c *Channel) receive() {
	defer close(c.done)
	buf := make([]byte, 1024)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		msg := string(buf[:n])
		c.mu.Lock()
		if msg == CloseSentinel {
			c.closed = true
			c.unread = append(c.unread, deletedNote)
			c.mu.Unlock()
			return
		}
		c.unread = append(c.unread, msg)
		c.mu.Unlock()
	}
}

// Read drains and returns the unread messages in arrival order.
func (c *Channel) Read() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.unread
	c.unread = nil
	return out
}

// Send publishes a user message to the group.
func (c *Channel) Send(sender, text string) error {
	return Send(c.group, sender, text)
}

// Closed reports whether the project behind the channel was deleted.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close cancels the receive task and releases the socket. Safe to
// call after the sentinel already stopped the task.
func (c *Channel) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
