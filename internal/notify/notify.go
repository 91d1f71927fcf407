// Package notify serves the registration and presence-subscription
// side channel. Each client keeps one framed-TCP connection open
// here; subscribing turns that connection into a push target for
// presence updates, so the hub never needs to know the transport.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/alessiodelgadillo/Worth/internal/board"
	"github.com/alessiodelgadillo/Worth/internal/presence"
	"github.com/alessiodelgadillo/Worth/internal/store"
	"github.com/alessiodelgadillo/Worth/internal/wire"
)

// pushTimeout bounds a presence push so one stalled subscriber turns
// into a failed (and evicted) one instead of blocking the broadcast.
const pushTimeout = 5 * time.Second

// Server accepts subscription connections and answers the register,
// subscribe, and unsubscribe requests.
type Server struct {
	Board *board.Registry
	Hub   *presence.Hub
	Store *store.Store
	Log   *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// ListenAndServe accepts connections until the context is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.Board == nil || s.Hub == nil || s.Store == nil {
		return errors.New("board, hub, and store are required")
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	context.AfterFunc(ctx, func() { _ = ln.Close() })

	s.Log.Info("subscription listener ready", "addr", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handle(conn)
	}
}

// Addr returns the bound listen address once ListenAndServe is up.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handle runs one subscription connection. The connection doubles as
// the push callback: a subscriber that cannot be written to is gone.
func (s *Server) handle(conn net.Conn) {
	p := &pusher{conn: conn}
	defer func() {
		s.Hub.Unsubscribe(p)
		_ = conn.Close()
	}()
	for {
		req, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		reply := s.execute(req, p)
		if err := p.send(reply); err != nil {
			return
		}
	}
}

func (s *Server) execute(req string, p *pusher) string {
	fields := strings.Fields(req)
	if len(fields) == 0 {
		return "Command not found"
	}
	switch fields[0] {
	case "register":
		if len(fields) < 3 {
			return "invalid argument: usage: register <user> <password>"
		}
		return s.register(fields[1], fields[2])
	case "subscribe":
		s.Hub.Subscribe(p)
		return "ok"
	case "unsubscribe":
		s.Hub.Unsubscribe(p)
		return "ok"
	default:
		return "Command not found"
	}
}

// register creates the account, persists the user set, and announces
// the newcomer (OFFLINE) to every subscriber.
func (s *Server) register(name, password string) string {
	if err := s.Board.RegisterUser(name, password); err != nil {
		return err.Error()
	}
	if err := s.Store.SaveUsers(s.Board.Users()); err != nil {
		s.Log.Warn("snapshot write failed", "error", err)
	}
	s.Hub.Broadcast(s.Board.PresenceMap())
	s.Log.Info("user registered", "user", name)
	return "ok"
}

// pusher adapts one notify connection to presence.Subscriber. Pushes
// and request replies share the connection, so writes are serialized.
type pusher struct {
	mu   sync.Mutex
	conn net.Conn
}

// Push sends "update <json mapping>" as its own frame.
func (p *pusher) Push(states map[string]string) error {
	b, err := json.Marshal(states)
	if err != nil {
		return err
	}
	return p.send("update " + string(b))
}

func (p *pusher) send(payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(pushTimeout))
	return wire.WriteFrame(p.conn, payload)
}
