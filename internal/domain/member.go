package domain

import "time"

// Role is a member's standing in the library.
type Role string

// Roles.
const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage loans and fines.
func (r Role) IsStaff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// Member is a library patron or staff account.
type Member struct {
	ID           string    `json:"id"`
	MembershipID string    `json:"membershipID"`
	Name         string    `json:"name"`
	Contact      string    `json:"contact"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
