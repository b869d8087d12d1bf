package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	OrganizationID string    `json:"organizationId"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Caller is the authenticated identity the transport layer hands to the core.
// It is everything authorization decisions need: who, which role, which tenant.
type Caller struct {
	ID             string
	Role           Role
	OrganizationID string
}

func (u User) Caller() Caller {
	return Caller{ID: u.ID, Role: u.Role, OrganizationID: u.OrganizationID}
}
