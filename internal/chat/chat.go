// Package chat carries the per-project group chat: fire-and-forget
// UDP multicast sends, and a receiving channel that buffers unread
// messages until the client drains them.
package chat

import (
	"fmt"
	"net"
	"net/netip"
)

// CloseSentinel is the server-originated message that terminates a
// project channel after cancellation.
const CloseSentinel = "System: close"

// deletedNote is queued for the client once the sentinel arrives.
const deletedNote = "The project has been deleted"

// Send delivers "<sender>: <text>" to a chat group. Delivery is
// best-effort: no acknowledgement, no retry.
func Send(group netip.AddrPort, sender, text string) error {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(group))
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(fmt.Sprintf("%s: %s", sender, text)))
	return err
}

// Announce sends a server-originated system message to a chat group.
func Announce(group netip.AddrPort, text string) error {
	return Send(group, "System", text)
}

// AnnounceFunc lets the dispatcher publish announcements without
// binding to the UDP transport.
type AnnounceFunc func(group netip.AddrPort, text string) error
