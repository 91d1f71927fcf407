package notify

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/alessiodelgadillo/Worth/internal/board"
	"github.com/alessiodelgadillo/Worth/internal/presence"
	"github.com/alessiodelgadillo/Worth/internal/store"
	"github.com/alessiodelgadillo/Worth/internal/wire"
)

// startServer brings up a subscription listener on an ephemeral port
// and returns it together with its registry and hub.
func startServer(t *testing.T) (*Server, *board.Registry, *presence.Hub) {
	t.Helper()
	reg := board.NewRegistry()
	hub := presence.NewHub(nil)
	s := &Server{
		Board: reg,
		Hub:   hub,
		Store: store.New(afero.NewMemMapFs(), "recovery", nil),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	// Wait for the listener to publish its address.
	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("listener never came up")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("ListenAndServe: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("ListenAndServe did not return after cancel")
		}
	})
	return s, reg, hub
}

func dialServer(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func request(t *testing.T, conn net.Conn, req string) string {
	t.Helper()
	if err := wire.WriteFrame(conn, req); err != nil {
		t.Fatalf("WriteFrame(%q): %v", req, err)
	}
	reply, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame after %q: %v", req, err)
	}
	return reply
}

func TestRegister(t *testing.T) {
	s, reg, _ := startServer(t)
	conn := dialServer(t, s)

	if got := request(t, conn, "register alice secret"); got != "ok" {
		t.Fatalf("register reply = %q", got)
	}
	if got := request(t, conn, "register alice secret"); !strings.Contains(got, "taken") {
		t.Fatalf("duplicate register reply = %q", got)
	}
	if got := request(t, conn, "register alice"); !strings.Contains(got, "usage") {
		t.Fatalf("short register reply = %q", got)
	}
	if _, ok := reg.User("alice"); !ok {
		t.Fatalf("alice missing from registry")
	}
}

// TestSubscribe checks the push side: the initial snapshot arrives as
// an update frame before the ok reply, and later broadcasts arrive on
// the same connection.
func TestSubscribe(t *testing.T) {
	s, _, hub := startServer(t)
	conn := dialServer(t, s)
	request(t, conn, "register alice secret")

	if err := wire.WriteFrame(conn, "subscribe"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	update := readUpdate(t, conn)
	if update["alice"] != "OFFLINE" {
		t.Fatalf("initial snapshot = %v", update)
	}
	reply, err := wire.ReadFrame(conn)
	if err != nil || reply != "ok" {
		t.Fatalf("subscribe reply = %q, %v", reply, err)
	}

	hub.Broadcast(map[string]string{"alice": "ONLINE"})
	update = readUpdate(t, conn)
	if update["alice"] != "ONLINE" {
		t.Fatalf("broadcast snapshot = %v", update)
	}
}

func TestUnsubscribeStopsPushes(t *testing.T) {
	s, _, hub := startServer(t)
	conn := dialServer(t, s)

	if err := wire.WriteFrame(conn, "subscribe"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	readUpdate(t, conn) // initial snapshot
	if reply, _ := wire.ReadFrame(conn); reply != "ok" {
		t.Fatalf("subscribe reply = %q", reply)
	}
	if got := request(t, conn, "unsubscribe"); got != "ok" {
		t.Fatalf("unsubscribe reply = %q", got)
	}

	hub.Broadcast(map[string]string{"alice": "ONLINE"})
	// No push may arrive; the next frame we read must be a reply to
	// our own request, not an update.
	if got := request(t, conn, "register bob secret"); got != "ok" {
		t.Fatalf("post-unsubscribe reply = %q", got)
	}
}

func TestUnknownRequest(t *testing.T) {
	s, _, _ := startServer(t)
	conn := dialServer(t, s)
	if got := request(t, conn, "frobnicate"); got != "Command not found" {
		t.Fatalf("reply = %q", got)
	}
}

// TestDroppedSubscriberIsEvicted closes a subscribed connection and
// checks that the next broadcast shakes it out of the hub.
func TestDroppedSubscriberIsEvicted(t *testing.T) {
	s, _, hub := startServer(t)
	conn := dialServer(t, s)
	if err := wire.WriteFrame(conn, "subscribe"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	readUpdate(t, conn)
	if reply, _ := wire.ReadFrame(conn); reply != "ok" {
		t.Fatalf("subscribe reply = %q", reply)
	}
	conn.Close()

	// The server notices the closed connection and unsubscribes it;
	// a failed push evicts it either way. This must not hang or panic.
	for i := 0; i < 20; i++ {
		hub.Broadcast(map[string]string{"alice": "ONLINE"})
		time.Sleep(10 * time.Millisecond)
	}
}

func readUpdate(t *testing.T, conn net.Conn) map[string]string {
	t.Helper()
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	body, ok := strings.CutPrefix(frame, "update ")
	if !ok {
		t.Fatalf("expected update frame, got %q", frame)
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("bad update payload %q: %v", body, err)
	}
	return m
}
