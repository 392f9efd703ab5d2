package validator

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	shared     *validator.Validate
	sharedOnce sync.Once
)

// New creates a new validator instance with custom validations registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "notblank" rejects whitespace-only strings.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return strings.TrimSpace(str) != ""
	})

	return v
}

// Get returns a process-wide validator. validator.Validate caches struct
// metadata and is safe for concurrent use.
func Get() *validator.Validate {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}
