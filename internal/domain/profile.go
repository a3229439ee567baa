package domain

import "time"

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// roleRank orders roles for permission checks: viewer < editor < admin.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// HasPermission reports whether the role grants at least minRole's access.
func (r Role) HasPermission(minRole Role) bool {
	return roleRank[r] >= roleRank[minRole]
}

// IsValid checks if the role is a known role.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Profile is a user account. The reserved system profile (IsSystem=true)
// is the actor identity for all automated writes and never logs in.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken is a stored refresh token for session renewal.
type RefreshToken struct {
	Token     string
	ProfileID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
