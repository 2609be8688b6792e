// Package devseed creates the demo accounts the dev backend ships with.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	apperrors "github.com/target/lms-gateway/internal/errors"
	"github.com/target/lms-gateway/internal/ports"
	"github.com/target/lms-gateway/internal/service"
)

// UserCreator is the slice of the user service seeding needs.
type UserCreator interface {
	CreateUser(ctx context.Context, req service.CreateUserRequest) (ports.User, error)
}

// Account is one seeded login.
type Account struct {
	Email    string
	FullName string
	Role     domainauth.Role
}

// DefaultAccounts returns one account per role.
func DefaultAccounts() []Account {
	return []Account{
		{Email: "admin@lms.local", FullName: "Ada Admin", Role: domainauth.RoleAdmin},
		{Email: "instructor@lms.local", FullName: "Ivan Instructor", Role: domainauth.RoleInstructor},
		{Email: "student@lms.local", FullName: "Sam Student", Role: domainauth.RoleStudent},
	}
}

// Run creates the accounts with the shared password. Existing accounts are
// left untouched, so Run is safe to repeat.
func Run(ctx context.Context, users UserCreator, accounts []Account, password string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, a := range accounts {
		_, err := users.CreateUser(ctx, service.CreateUserRequest{
			Email:    a.Email,
			Password: password,
			FullName: a.FullName,
			Role:     string(a.Role),
		})
		switch {
		case err == nil:
			logger.InfoContext(ctx, "seeded account", "email", a.Email, "role", a.Role)
		case apperrors.IsConflict(err):
			logger.DebugContext(ctx, "account already exists", "email", a.Email)
		default:
			logger.ErrorContext(ctx, "failed to seed account", "email", a.Email, "error", err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}
