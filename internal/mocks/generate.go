// Package mocks provides mock implementations of the gateway ports for testing.
//
// This package uses go.uber.org/mock (gomock). To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	resolver := mocks.NewMockIdentityResolver(ctrl)
//	resolver.EXPECT().Resolve(gomock.Any(), "token").Return(identity, nil)
package mocks

// Generate mocks for the ports used by the access gate, auth handlers, and dev backend:
// IdentityResolver, AuthBackend, UserStore, Mailer
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/lms-gateway/internal/ports IdentityResolver,AuthBackend,UserStore,Mailer
