package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,30}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator. Field errors are reported under
// their JSON names, and the "username" tag allows up to 30 letters,
// digits, dots, underscores or hyphens.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRegex.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s and converts failures into a 400 AppError.
func Struct(s interface{}) error {
	if err := Validator().Struct(s); err != nil {
		return apperrors.FromValidation(err)
	}
	return nil
}
