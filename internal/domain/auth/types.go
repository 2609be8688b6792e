package auth

// Package auth contains domain-level types for identities and roles.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
)

// Role represents an LMS authorization role.
// A caller holds exactly one role at a time.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// Roles returns every valid role ordered from most to least privileged.
func Roles() []Role {
	return []Role{RoleAdmin, RoleInstructor, RoleStudent}
}

// ParseRole normalizes a role name. Matching is case-insensitive and ignores
// surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q (valid options: ADMIN, INSTRUCTOR, STUDENT)", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Rank orders roles by privilege. Unknown roles rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleInstructor:
		return 2
	case RoleStudent:
		return 1
	}
	return 0
}

// HighestRole picks the most privileged valid role from names.
// Unknown names are skipped; ok is false when none are valid.
func HighestRole(names []string) (Role, bool) {
	var best Role
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			continue
		}
		if r.Rank() > best.Rank() {
			best = r
		}
	}
	return best, best != ""
}

// Identity is the normalized user record resolved from a bearer credential.
// It never carries the credential itself.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Phone       string `json:"phone,omitempty"`
	Age         int    `json:"age,omitempty"`
}

// IsAdmin reports whether the identity holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanInstruct reports whether the identity may use instructor areas.
func (i Identity) CanInstruct() bool {
	return i.Role == RoleAdmin || i.Role == RoleInstructor
}
