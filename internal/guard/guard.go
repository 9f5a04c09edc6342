// Package guard decides whether the current session may render a
// protected view. It is a pure predicate over the session snapshot and
// a declared role requirement; it knows nothing about routes.
package guard

import (
	"github.com/hearthlabs/hearthview/internal/session"
	"github.com/hearthlabs/hearthview/pkg/models"
)

// Decision is the outcome of an access check.
type Decision int

const (
	// Allow renders the view.
	Allow Decision = iota
	// DenyUnauthenticated redirects to the login entry point.
	DenyUnauthenticated
	// DenyUnauthorized redirects to the unauthorized page: the caller
	// is logged in but lacks the required role.
	DenyUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyUnauthorized:
		return "unauthorized"
	default:
		return "invalid"
	}
}

// Requirement is the set of roles permitted for a view. An empty
// requirement means "any authenticated user".
type Requirement []models.Role

// RequireAny builds a Requirement from the given roles.
func RequireAny(roles ...models.Role) Requirement {
	return Requirement(roles)
}

func (r Requirement) permits(role models.Role) bool {
	if len(r) == 0 {
		return true
	}
	for _, allowed := range r {
		if allowed == role {
			return true
		}
	}
	return false
}

// Check evaluates the requirement against a session snapshot.
// Unauthenticated and wrong-role denials are distinct outcomes: they
// redirect to different places.
func Check(snap session.Snapshot, required Requirement) Decision {
	if !snap.Authenticated() {
		return DenyUnauthenticated
	}
	if !required.permits(snap.Role()) {
		return DenyUnauthorized
	}
	return Allow
}
