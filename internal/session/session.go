// Package session owns the per-browser session state derived from the
// persisted bearer token: who is logged in, with what role, and where the
// session is in its lifecycle.
package session

import (
	"bookshelf/pkg/domain"
)

// State is the lifecycle position of a session.
type State int

const (
	// StateUnresolved means no resolution attempt has happened yet.
	StateUnresolved State = iota
	// StateResolving means a resolution attempt is in flight.
	StateResolving
	// StateAuthenticated means the token resolved to a server-confirmed identity.
	StateAuthenticated
	// StateUnauthenticated means there is no valid session.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is a snapshot of one browser's authentication state.
type Session struct {
	User      domain.User
	State     State
	LastError string
}

// IsAuthenticated reports whether the session resolved to a confirmed identity.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}

// HasRole reports whether the session's user may access views restricted to
// the given roles. An empty role set means "no restriction". A session with
// no loaded user never has a role.
func (s Session) HasRole(roles ...domain.Role) bool {
	if s.User.ID == "" {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if s.User.Role == role {
			return true
		}
	}
	return false
}
