package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var placeIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{2,8}(-sky)?$`)

// StructValidator wraps go-playground/validator with the tags used by search inputs.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator registers the custom rules and reports fields by their json name.
func NewStructValidator() *StructValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// placeid accepts provider place identifiers such as "LHR-sky" or "LOND-sky".
	_ = v.RegisterValidation("placeid", func(fl validator.FieldLevel) bool {
		return placeIDPattern.MatchString(fl.Field().String())
	})

	return &StructValidator{validate: v}
}

// Validate runs struct tags on s and converts failures into a ValidationResult.
func (sv *StructValidator) Validate(s interface{}) *ValidationResult {
	err := sv.validate.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_INPUT"}},
		}
	}

	out := &ValidationResult{Valid: false}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "datetime":
		return fmt.Sprintf("must be a date in %s layout", fe.Param())
	case "nefield":
		return fmt.Sprintf("must differ from %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "placeid":
		return "must be a provider place id such as LHR-sky"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
