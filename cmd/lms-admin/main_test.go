package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/lms-gateway/config"
	"github.com/target/lms-gateway/internal/bootstrap"
	"github.com/target/lms-gateway/internal/testutil"
)

func newTestContext(t *testing.T) (*commandContext, *bytes.Buffer) {
	t.Helper()
	_, client := testutil.NewMiniRedis(t)

	var cfg config.AppConfig
	cfg.DevBackend.Store = config.StoreRedis
	cfg.DevBackend.JWTTTL = 15 * time.Minute
	cfg.DevBackend.SeedPassword = "password123"
	cfg.Redis.KeyPrefix = "cli:"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users, err := bootstrap.NewUserService(context.Background(), &cfg, client, logger)
	require.NoError(t, err)

	var out bytes.Buffer
	return &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Out:    &out,
		Users:  users,
		Config: cfg,
	}, &out
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
	assert.Less(t, strings.Index(buf.String(), "users-assign-role"), strings.Index(buf.String(), "users-toggle"))
}

func TestUsersSeedAndList(t *testing.T) {
	ctx, out := newTestContext(t)

	require.NoError(t, runUsersSeed(ctx, nil))
	require.NoError(t, runUsersSeed(ctx, nil))
	assert.Contains(t, out.String(), "Seeded 3 accounts")

	out.Reset()
	require.NoError(t, runUsersList(ctx, []string{"--size", "10"}))
	listing := out.String()
	assert.Contains(t, listing, "EMAIL")
	assert.Contains(t, listing, "admin@lms.local")
	assert.Contains(t, listing, "instructor@lms.local")
	assert.Contains(t, listing, "student@lms.local")
	assert.Contains(t, listing, "3 of 3 accounts (page 1)")

	require.Error(t, runUsersList(ctx, []string{"--size", "0"}))
	require.Error(t, runUsersList(ctx, []string{"--page", "0"}))
}

func TestUsersAssignRole(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, runUsersSeed(ctx, nil))
	out.Reset()

	require.NoError(t, runUsersAssignRole(ctx, []string{"student@lms.local", "instructor"}))
	assert.Equal(t, "student@lms.local is now INSTRUCTOR\n", out.String())

	u, err := ctx.Users.FindByEmail(ctx.Ctx, "student@lms.local")
	require.NoError(t, err)
	assert.Equal(t, "INSTRUCTOR", string(u.Role))

	require.Error(t, runUsersAssignRole(ctx, []string{"student@lms.local", "owner"}))
	require.Error(t, runUsersAssignRole(ctx, []string{"ghost@lms.local", "ADMIN"}))
	require.Error(t, runUsersAssignRole(ctx, []string{"student@lms.local"}))
}

func TestUsersToggle(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, runUsersSeed(ctx, nil))
	out.Reset()

	require.NoError(t, runUsersToggle(ctx, []string{"student@lms.local"}))
	require.NoError(t, runUsersToggle(ctx, []string{"student@lms.local"}))
	assert.Equal(t, "student@lms.local deactivated\nstudent@lms.local activated\n", out.String())

	require.Error(t, runUsersToggle(ctx, nil))
	require.Error(t, runUsersToggle(ctx, []string{"ghost@lms.local"}))
}
