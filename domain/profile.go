package domain

import (
	"strings"
	"time"
)

// Role determines which dashboard a profile-complete session renders.
type Role string

const (
	RoleVendor    Role = "vendor"
	RoleNGO       Role = "ngo"
	RoleCorporate Role = "corporate"
	RoleAdmin     Role = "admin"
	RoleUnset     Role = ""
)

// Valid reports whether r is one of the closed role set. The empty role is
// valid: accounts exist before the role-selection flow has run.
func (r Role) Valid() bool {
	switch r {
	case RoleVendor, RoleNGO, RoleCorporate, RoleAdmin, RoleUnset:
		return true
	default:
		return false
	}
}

// ProfileStatus defines the possible statuses of a platform account.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "ACTIVE"
	ProfileStatusSuspended ProfileStatus = "SUSPENDED"
	ProfileStatusPending   ProfileStatus = "PENDING"
)

// Profile is the application-level record keyed 1:1 by Identity id.
// The password hash lives on the same row because the platform is its own
// identity issuer; it is never serialized to API consumers.
type Profile struct {
	ID           string        `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email,unique" json:"email"`
	PasswordHash string        `bson:"password_hash,omitempty" json:"-"`
	FirstName    string        `bson:"first_name,omitempty" json:"first_name"`
	LastName     string        `bson:"last_name,omitempty" json:"last_name"`
	Phone        string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Organization string        `bson:"organization,omitempty" json:"organization,omitempty"`
	Location     string        `bson:"location,omitempty" json:"location,omitempty"`
	Role         Role          `bson:"role,omitempty" json:"role"`
	Status       ProfileStatus `bson:"status" json:"status"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// NormalizeEmail trims surrounding whitespace and lowercases an address so
// sign-in and sign-up always hit the same row.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
