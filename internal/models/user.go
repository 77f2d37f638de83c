package models

import "time"

// User roles. Operators are the reporter tier: they can only touch their own
// tickets and never change status. Every other role is a full mutating role.
const (
	RoleOperator   = "operator"
	RoleTechnician = "technician"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// User is an account known to the plant. Authentication happens upstream;
// the core only cares about identity and role.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:64" json:"first_name"`
	LastName  string    `gorm:"size:64" json:"last_name"`
	Email     string    `gorm:"size:128;uniqueIndex" json:"email"`
	Role      string    `gorm:"size:24;default:operator" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the best human-readable name available.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
