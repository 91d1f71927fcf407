package session

import (
	"net/netip"
	"testing"
)

func TestBindLookupClear(t *testing.T) {
	r := NewRegistry()
	ep := netip.MustParseAddrPort("127.0.0.1:50000")

	if _, ok := r.Lookup(ep); ok {
		t.Fatalf("lookup hit on empty registry")
	}
	r.Bind(ep, "alice")
	if u, ok := r.Lookup(ep); !ok || u != "alice" {
		t.Fatalf("Lookup = %q, %v", u, ok)
	}
	// Rebinding the same endpoint replaces the user.
	r.Bind(ep, "bob")
	if u, _ := r.Lookup(ep); u != "bob" {
		t.Fatalf("Lookup after rebind = %q", u)
	}
	r.Clear(ep)
	if _, ok := r.Lookup(ep); ok {
		t.Fatalf("lookup hit after clear")
	}
	r.Clear(ep) // clearing twice is fine
}
