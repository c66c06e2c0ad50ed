package middleware

import (
	"errors"
	"reflect"
	"strings"

	"smallbiznis-license/pkg/errutil"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the `validate` tags of a bound request. Binding and
// validation are separate steps so callers can authorize in between.
func Validate(req any) error {
	return validate.Struct(req)
}

// ValidationDetails lists the offending fields of a Validate error.
func ValidationDetails(err error) []errutil.Detail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make([]errutil.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, errutil.Detail{
			Field:   fe.Field(),
			Message: fe.Tag(),
		})
	}
	return details
}
