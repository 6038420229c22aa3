package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// Custom validators
	v.RegisterValidation("social_handle", validateSocialHandle)

	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// validateSocialHandle accepts GitHub/Twitter style handles: letters, digits
// and inner dashes, no leading @.
func validateSocialHandle(fl validator.FieldLevel) bool {
	handle := fl.Field().String()
	if strings.HasPrefix(handle, "@") {
		return false
	}
	if len(handle) > 39 {
		return false
	}
	return handlePattern.MatchString(handle)
}
