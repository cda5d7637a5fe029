// Package validation checks user input for registration and login.
package validation

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"secrets/internal/errors"
)

const (
	passwordMinLen   = 6
	passwordMaxLen   = 8
	passwordSpecials = "@#$%^&*!"
)

// RequiredMessager lets an input type choose the message shown when a
// required field is missing.
type RequiredMessager interface {
	RequiredMessage() string
}

// Validator wraps go-playground/validator with the "emailshape" and
// "password" rules registered. Safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return IsEmailShape(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return IsPasswordValid(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Validate checks i against its `validate` tags and returns an
// *errors.ValidationError describing the first problem. Missing fields take
// priority over malformed ones.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return err
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			msg := errors.MsgAllFieldsRequired
			if rm, ok := i.(RequiredMessager); ok {
				msg = rm.RequiredMessage()
			}
			return errors.NewValidationError(fe.Field(), msg)
		}
	}

	fe := fieldErrs[0]
	return errors.NewValidationError(fe.Field(), messageFor(fe))
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "emailshape":
		return errors.MsgInvalidEmail
	case "password":
		return errors.MsgPasswordPolicy
	default:
		return fe.Field() + " is invalid"
	}
}

// IsEmailShape reports whether email has a non-empty local part, exactly one
// '@', a '.' inside the domain with text on both sides, and no whitespace.
func IsEmailShape(email string) bool {
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || len(domain) < 3 {
		return false
	}
	return strings.Contains(domain[1:len(domain)-1], ".")
}

// IsPasswordValid applies the password policy: 6 to 8 characters, at least
// one lowercase letter, one uppercase letter and one digit, and nothing but
// ASCII letters, digits and @#$%^&*!.
func IsPasswordValid(password string) bool {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return false
	}

	var lower, upper, digit bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.IndexByte(passwordSpecials, c) >= 0:
		default:
			return false
		}
	}
	return lower && upper && digit
}
