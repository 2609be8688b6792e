package testutil

import (
	"strings"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	"github.com/target/lms-gateway/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder provides a fluent interface for building ports.User values in tests.
type UserBuilder struct {
	u ports.User
}

// NewUser creates a UserBuilder for an active, verified student.
func NewUser() *UserBuilder {
	return &UserBuilder{
		u: ports.User{
			Email:    "student@lms.local",
			FullName: "Test Student",
			Role:     domainauth.RoleStudent,
			Active:   true,
			Verified: true,
		},
	}
}

// WithID sets the user id.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.u.ID = id
	return b
}

// WithEmail sets the email.
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.u.Email = strings.ToLower(email)
	return b
}

// WithRole sets the role.
func (b *UserBuilder) WithRole(r domainauth.Role) *UserBuilder {
	b.u.Role = r
	return b
}

// WithPassword stores a bcrypt hash of password at the minimum cost.
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.u.PasswordHash = hash
	return b
}

// Inactive marks the user as deactivated.
func (b *UserBuilder) Inactive() *UserBuilder {
	b.u.Active = false
	return b
}

// Unverified marks the email as not yet verified.
func (b *UserBuilder) Unverified() *UserBuilder {
	b.u.Verified = false
	return b
}

// Build returns the user.
func (b *UserBuilder) Build() ports.User {
	return b.u
}
