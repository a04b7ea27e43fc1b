package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const passwordTooLongMessage = "Password must be at most 72 bytes"

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// validationMessage returns a user-facing message for the first failed rule,
// or "" when the request is valid.
func validationMessage(request any) string {
	err := validate.Struct(request)
	if err == nil {
		return ""
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Email should be valid"
	case "min", "max":
		if field == "Username" {
			return "Username must be between 3 and 20 characters"
		}
		if fe.Tag() == "max" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(field))
	}
}
