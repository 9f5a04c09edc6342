package models

import "time"

// Role identifies a user's capability tier on the platform.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is the authenticated account returned by the session probe.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a buyer's review of a listing.
type Review struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewDraft carries the writable fields for submitting a review.
type ReviewDraft struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Interest is an expression-of-interest form submission for a listing.
type Interest struct {
	PropertyID string `json:"property_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Message    string `json:"message,omitempty"`
}
