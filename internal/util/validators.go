package util

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateNotBlank rejects strings made only of whitespace.
func ValidateNotBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(s) != ""
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidUsername reports whether name is made only of letters, digits and
// @/./+/-/_, so it fits in a URL path segment as is.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// ValidateUsername is the "username" binding rule.
func ValidateUsername(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && ValidUsername(strings.TrimSpace(s))
}

// RegisterValidators installs the custom rules and makes validation errors
// report the form field name instead of the Go struct field name.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", ValidateNotBlank); err != nil {
		return err
	}
	return v.RegisterValidation("username", ValidateUsername)
}
