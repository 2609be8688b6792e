package errors

import (
	"context"
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/target/lms-gateway/internal/ports"
)

// MapStoreError maps storage and context errors to AppError instances:
//   - ports.ErrUserNotFound → NotFound
//   - ports.ErrEmailTaken → Conflict (field "email")
//   - ports.ErrTokenNotFound → Validation (field "token")
//   - context timeouts/cancellations → Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "operation timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "operation canceled")
	case errors.Is(err, ports.ErrUserNotFound):
		return Wrap(err, ErrCodeNotFound, "user not found")
	case errors.Is(err, ports.ErrEmailTaken):
		return &AppError{Code: ErrCodeConflict, Message: "email already registered", Field: "email", Cause: err}
	case errors.Is(err, ports.ErrTokenNotFound):
		return &AppError{Code: ErrCodeValidation, Message: "token is invalid or expired", Field: "token", Cause: err}
	}
	return err
}

// FromValidation converts validator errors into a Validation AppError naming
// the first failing field. Other errors are returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	return &AppError{
		Code:    ErrCodeValidation,
		Message: validationMessage(fe),
		Field:   fe.Field(),
		Cause:   err,
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fe.Field() + " must be at least " + fe.Param() + " characters"
		}
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fe.Field() + " must be at most " + fe.Param() + " characters"
		}
		return fe.Field() + " must be at most " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
