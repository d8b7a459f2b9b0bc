// Package user defines the role hierarchy consumed by notification fan-out
// and claim authorization. Authentication itself is an external concern;
// the engine only reads already-established identities and roles.
package user

import "time"

// Role is a position in the sales hierarchy.
type Role string

const (
	RoleAgent           Role = "agent"
	RoleCoordinator     Role = "coordinator"
	RoleAreaCoordinator Role = "area_coordinator"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "superadmin"
)

// User is a hierarchy member. SupervisorID points one level up: an agent's
// supervisor is its coordinator, a coordinator's supervisor is its area
// coordinator. Empty when the hierarchy defines none.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	SupervisorID string    `json:"supervisor_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanDecideClaims reports whether the role may approve or reject claims.
func (r Role) CanDecideClaims() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
