package board

import "net/netip"

// Presence is a user's online state as published to subscribers.
type Presence string

const (
	Online  Presence = "ONLINE"
	Offline Presence = "OFFLINE"
)

// User is a registered account. The credential is an argon2id PHC
// string, persisted under the legacy "password" record key. Presence
// and the session endpoint are volatile: a user holds at most one
// endpoint at a time and it is cleared on logout, so they are never
// written to the snapshot store.
type User struct {
	Name     string `json:"name"`
	PassHash string `json:"password"`

	State    Presence       `json:"-"`
	Endpoint netip.AddrPort `json:"-"`
}
