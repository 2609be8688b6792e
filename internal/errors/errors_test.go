package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/lms-gateway/internal/ports"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeInternal, Message: "failed to process", Cause: errors.New("underlying error")},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestPredicatesAndGetters(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ValidationField("email", "bad email"))

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrCodeValidation, GetCode(wrapped))
	assert.Equal(t, "email", GetField(wrapped))
	assert.Equal(t, "bad email", GetMessage(wrapped))

	assert.True(t, IsUnauthorized(Unauthorized("no")))
	assert.True(t, IsForbidden(Forbidden("no")))
	assert.True(t, IsConflict(Conflict("dup")))
	assert.True(t, IsNotFound(NotFoundf("user %s", "1")))

	plain := errors.New("plain")
	assert.Empty(t, GetCode(plain))
	assert.Equal(t, "plain", GetMessage(plain))
	assert.Empty(t, GetMessage(nil))
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeForbidden:    http.StatusForbidden,
		ErrCodeUpstream:     http.StatusBadGateway,
		ErrCodeTimeout:      http.StatusGatewayTimeout,
		ErrCodeInternal:     http.StatusInternalServerError,
		ErrorCode("other"):  http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestMapStoreError(t *testing.T) {
	assert.NoError(t, MapStoreError(nil))

	tests := []struct {
		name  string
		in    error
		code  ErrorCode
		field string
	}{
		{"not found", fmt.Errorf("get: %w", ports.ErrUserNotFound), ErrCodeNotFound, ""},
		{"email taken", ports.ErrEmailTaken, ErrCodeConflict, "email"},
		{"token", ports.ErrTokenNotFound, ErrCodeValidation, "token"},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout, ""},
		{"canceled", context.Canceled, ErrCodeCanceled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapStoreError(tt.in)
			assert.Equal(t, tt.code, GetCode(got))
			assert.Equal(t, tt.field, GetField(got))
			assert.ErrorIs(t, got, tt.in)
		})
	}

	other := errors.New("disk on fire")
	assert.Same(t, other, MapStoreError(other))
}

func TestFromValidation(t *testing.T) {
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
		Age      int    `validate:"min=0,max=150"`
	}
	v := validator.New()

	err := FromValidation(v.Struct(form{Email: "nope", Password: "longenough"}))
	require.Error(t, err)
	assert.Equal(t, "Email", GetField(err))
	assert.Equal(t, "Email must be a valid email address", GetMessage(err))

	err = FromValidation(v.Struct(form{Email: "a@lms.local", Password: "short"}))
	assert.Equal(t, "Password must be at least 8 characters", GetMessage(err))

	err = FromValidation(v.Struct(form{Email: "a@lms.local", Password: "longenough", Age: 200}))
	assert.Equal(t, "Age must be at most 150", GetMessage(err))

	assert.NoError(t, FromValidation(nil))
	plain := errors.New("x")
	assert.Same(t, plain, FromValidation(plain))
}
