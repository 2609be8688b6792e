package ports_test

import (
	"testing"

	"github.com/target/lms-gateway/internal/adapters/backend"
	"github.com/target/lms-gateway/internal/adapters/jwttoken"
	"github.com/target/lms-gateway/internal/adapters/mailer"
	"github.com/target/lms-gateway/internal/adapters/memstore"
	"github.com/target/lms-gateway/internal/adapters/redis"
	"github.com/target/lms-gateway/internal/mocks"
	mockauth "github.com/target/lms-gateway/internal/mocks/auth"
	"github.com/target/lms-gateway/internal/ports"
)

// This test only verifies that adapters and mocks conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityResolver = (*backend.Client)(nil)
	var _ ports.AuthBackend = (*backend.Client)(nil)
	var _ ports.UserStore = (*memstore.UserStore)(nil)
	var _ ports.UserStore = (*redis.UserStore)(nil)
	var _ ports.TokenStore = (*memstore.TokenStore)(nil)
	var _ ports.TokenStore = (*redis.TokenStore)(nil)
	var _ ports.AccessTokenIssuer = (*jwttoken.Issuer)(nil)
	var _ ports.Mailer = (*mailer.LogMailer)(nil)
	var _ ports.Mailer = (*mailer.SendGridMailer)(nil)

	var _ ports.IdentityResolver = (*mocks.MockIdentityResolver)(nil)
	var _ ports.AuthBackend = (*mocks.MockAuthBackend)(nil)
	var _ ports.UserStore = (*mocks.MockUserStore)(nil)
	var _ ports.Mailer = (*mocks.MockMailer)(nil)
	var _ ports.IdentityResolver = (*mockauth.StaticResolver)(nil)
	var _ ports.Mailer = (*mockauth.RecordingMailer)(nil)
}
