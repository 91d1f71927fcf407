// Package mux implements the framed request/reply server as a single
// poll(2) readiness loop over nonblocking sockets: no goroutine per
// connection and no blocking read or write outside the loop.
package mux

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/alessiodelgadillo/Worth/internal/wire"
)

// Handler produces the reply payload for one request payload. It runs
// on the poll loop, so it must not block on network I/O.
type Handler func(req string, from netip.AddrPort) string

// conn is the per-connection state: the receive buffer assembling one
// length-prefixed frame, and the pending reply bytes once a request
// has been handled. A connection interested in neither direction does
// not exist: it reads until a full frame, writes until drained, then
// reads again. One outstanding request at a time.
type conn struct {
	fd     int
	remote netip.AddrPort
	in     []byte
	out    []byte
}

// Server multiplexes every client connection over one poll loop.
type Server struct {
	handler Handler
	log     *slog.Logger

	lfd   int
	addr  netip.AddrPort
	wake  [2]int
	conns map[int]*conn
}

// Listen binds a nonblocking listener on addr ("ip:port"; port 0
// picks an ephemeral port) and prepares the loop. Serve starts it.
func Listen(addr string, h Handler, log *slog.Logger) (*Server, error) {
	if h == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if log == nil {
		log = slog.Default()
	}
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return nil, fmt.Errorf("listen address %q: %w", addr, err)
	}
	if !ap.Addr().Is4() {
		return nil, fmt.Errorf("listen address %q: only IPv4 is supported", addr)
	}

	lfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(lfd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(lfd)
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().As4()}
	if err := unix.Bind(lfd, sa); err != nil {
		unix.Close(lfd)
		return nil, err
	}
	if err := unix.Listen(lfd, unix.SOMAXCONN); err != nil {
		unix.Close(lfd)
		return nil, err
	}
	bound, err := unix.Getsockname(lfd)
	if err != nil {
		unix.Close(lfd)
		return nil, err
	}

	s := &Server{handler: h, log: log, lfd: lfd, conns: map[int]*conn{}}
	s.addr = sockaddrToAddrPort(bound)
	// Self-pipe so context cancellation can interrupt a parked poll.
	if err := unix.Pipe2(s.wake[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(lfd)
		return nil, err
	}
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() netip.AddrPort {
	return s.addr
}

// Serve runs the readiness loop until ctx is cancelled. It returns
// nil on cancellation; connection-level errors only ever close the
// one connection involved.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		var b [1]byte
		_, _ = unix.Write(s.wake[1], b[:])
	}()
	defer s.shutdown()

	s.log.Info("listening for connections", "addr", s.addr)
	fds := make([]unix.PollFd, 0, 16)
	order := make([]int, 0, 16)
	for {
		fds = fds[:0]
		fds = append(fds,
			unix.PollFd{Fd: int32(s.wake[0]), Events: unix.POLLIN},
			unix.PollFd{Fd: int32(s.lfd), Events: unix.POLLIN},
		)
		order = order[:0]
		for fd, c := range s.conns {
			ev := int16(unix.POLLIN)
			if len(c.out) > 0 {
				ev = unix.POLLOUT
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: ev})
			order = append(order, fd)
		}

		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		if fds[0].Revents != 0 {
			return nil
		}
		if fds[1].Revents != 0 {
			s.accept()
		}
		for i, fd := range order {
			re := fds[i+2].Revents
			c, ok := s.conns[fd]
			if !ok || re == 0 {
				continue
			}
			if re&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				s.closeConn(c, nil)
				continue
			}
			if re&unix.POLLIN != 0 {
				s.readable(c)
			} else if re&unix.POLLOUT != 0 {
				s.writable(c)
			}
		}
	}
}

// accept drains the listener's pending connection queue.
func (s *Server) accept() {
	for {
		fd, sa, err := unix.Accept4(s.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			return
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.log.Warn("accept failed", "error", err)
			return
		}
		c := &conn{fd: fd, remote: sockaddrToAddrPort(sa)}
		s.conns[fd] = c
		s.log.Info("new connection", "remote", c.remote)
	}
}

// readable pulls bytes in and, once a full frame has assembled, runs
// the handler and parks the framed reply for writing.
func (s *Server) readable(c *conn) {
	var buf [4096]byte
	for {
		n, err := unix.Read(c.fd, buf[:])
		if err == unix.EAGAIN {
			break
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			s.closeConn(c, err)
			return
		}
		c.in = append(c.in, buf[:n]...)
		if n < len(buf) {
			break
		}
	}

	for {
		payload, rest, ok, err := wire.Decode(c.in)
		if err != nil {
			s.closeConn(c, err)
			return
		}
		if !ok {
			return
		}
		c.in = rest
		reply := s.handler(payload, c.remote)
		c.out = wire.AppendFrame(c.out, reply)
		// Try the write immediately; most replies fit the socket
		// buffer and never need a POLLOUT round trip.
		s.writable(c)
		if _, open := s.conns[c.fd]; !open || len(c.out) > 0 {
			return
		}
	}
}

// writable drains the pending reply. When it empties, the next loop
// iteration re-arms the connection for reading.
func (s *Server) writable(c *conn) {
	for len(c.out) > 0 {
		n, err := unix.Write(c.fd, c.out)
		if err == unix.EAGAIN {
			return
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.closeConn(c, err)
			return
		}
		c.out = c.out[n:]
	}
	c.out = nil
}

// closeConn deregisters and closes one connection. A client vanishing
// mid-operation is routine, not a server fault.
func (s *Server) closeConn(c *conn, err error) {
	delete(s.conns, c.fd)
	_ = unix.Close(c.fd)
	if err != nil {
		s.log.Info("connection closed", "remote", c.remote, "error", err)
	} else {
		s.log.Info("connection closed", "remote", c.remote)
	}
}

func (s *Server) shutdown() {
	for _, c := range s.conns {
		_ = unix.Close(c.fd)
	}
	s.conns = map[int]*conn{}
	_ = unix.Close(s.lfd)
	_ = unix.Close(s.wake[0])
	_ = unix.Close(s.wake[1])
}

func sockaddrToAddrPort(sa unix.Sockaddr) netip.AddrPort {
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		return netip.AddrPortFrom(netip.AddrFrom4(sa4.Addr), uint16(sa4.Port))
	}
	return netip.AddrPort{}
}
