// Package session ties the sync layer together: a stable session
// identity plus the Monitor, the one context object that owns the
// router, transport, reducer states and timeline for a monitoring
// session.
package session

import "github.com/google/uuid"

// Identity is the opaque session identifier. Created once per
// monitoring context and never mutated.
type Identity struct {
	id string
}

// NewIdentity mints a fresh session id.
func NewIdentity() Identity {
	return Identity{id: "sess-" + uuid.NewString()}
}

// IdentityFrom wraps an externally supplied id (e.g. from config or a
// resumed engine session).
func IdentityFrom(id string) Identity {
	return Identity{id: id}
}

func (i Identity) String() string { return i.id }
