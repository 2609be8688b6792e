package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	"github.com/target/lms-gateway/internal/ports"
)

func TestStaticResolver_Defaults(t *testing.T) {
	r := NewStaticResolver()
	ctx := context.Background()

	id, err := r.Resolve(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, id.Role)

	_, err = r.Resolve(ctx, "bogus")
	require.ErrorIs(t, err, ports.ErrInvalidCredential)

	assert.Equal(t, []string{"admin", "bogus"}, r.Calls())
}

func TestStaticResolver_ForcedError(t *testing.T) {
	r := NewStaticResolver()
	r.Err = ports.ErrUpstreamUnavailable

	_, err := r.Resolve(context.Background(), "admin")
	require.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
}

func TestStaticResolver_CustomFunc(t *testing.T) {
	r := &StaticResolver{
		ResolveFunc: func(_ context.Context, token string) (domainauth.Identity, error) {
			return domainauth.Identity{ID: token, Role: domainauth.RoleStudent}, nil
		},
	}
	id, err := r.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id.ID)
}

func TestRecordingMailer(t *testing.T) {
	m := &RecordingMailer{}
	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(context.Background(), ports.Mail{To: "a@lms.local", Subject: "hi"}))
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, "hi", last.Subject)
	assert.Len(t, m.Sent(), 1)

	m.Err = errors.New("smtp down")
	require.Error(t, m.Send(context.Background(), ports.Mail{}))
	assert.Len(t, m.Sent(), 1)
}
