package auth

// Package auth contains simple hand-written test doubles for identity and mail ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	"github.com/target/lms-gateway/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityResolver = (*StaticResolver)(nil)
	_ ports.Mailer           = (*RecordingMailer)(nil)
)

// StaticResolver resolves tokens from a fixed table. Unknown tokens are
// rejected as invalid credentials; setting Err forces every call to fail.
type StaticResolver struct {
	ResolveFunc func(ctx context.Context, token string) (domainauth.Identity, error)

	Identities map[string]domainauth.Identity
	Err        error

	mu    sync.Mutex
	calls []string
}

// NewStaticResolver creates a resolver seeded with one identity per role,
// keyed by the lower-case role name ("admin", "instructor", "student").
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		Identities: map[string]domainauth.Identity{
			"admin":      {ID: "u-admin", Email: "admin@lms.local", DisplayName: "Admin", Role: domainauth.RoleAdmin},
			"instructor": {ID: "u-instructor", Email: "instructor@lms.local", DisplayName: "Instructor", Role: domainauth.RoleInstructor},
			"student":    {ID: "u-student", Email: "student@lms.local", DisplayName: "Student", Role: domainauth.RoleStudent},
		},
	}
}

func (r *StaticResolver) Resolve(ctx context.Context, token string) (domainauth.Identity, error) {
	r.mu.Lock()
	r.calls = append(r.calls, token)
	r.mu.Unlock()

	if r.ResolveFunc != nil {
		return r.ResolveFunc(ctx, token)
	}
	if r.Err != nil {
		return domainauth.Identity{}, r.Err
	}
	id, ok := r.Identities[token]
	if !ok {
		return domainauth.Identity{}, fmt.Errorf("token %q: %w", token, ports.ErrInvalidCredential)
	}
	return id, nil
}

// Calls returns the tokens passed to Resolve, in order.
func (r *StaticResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// RecordingMailer keeps every message it is asked to send.
type RecordingMailer struct {
	Err error

	mu   sync.Mutex
	sent []ports.Mail
}

func (m *RecordingMailer) Send(_ context.Context, msg ports.Mail) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the messages delivered so far.
func (m *RecordingMailer) Sent() []ports.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Mail(nil), m.sent...)
}

// Last returns the most recent message, or false when nothing was sent.
func (m *RecordingMailer) Last() (ports.Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ports.Mail{}, false
	}
	return m.sent[len(m.sent)-1], true
}
