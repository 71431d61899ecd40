package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("data_uri", validateDataURI)
}

func GetValidator() *validator.Validate {
	return validate
}

// Struct validates v and returns per-field messages keyed by JSON name, or nil.
func Struct(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	return FormatValidationErrors(verrs)
}

func validateDataURI(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return true
	}
	return strings.HasPrefix(v, "data:image/") && strings.Contains(v, ";base64,")
}

func FormatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fieldError := range verrs {
		var message string

		switch fieldError.Tag() {
		case "required", "required_if":
			message = fieldError.Field() + " is required"
		case "email":
			message = "Invalid email format"
		case "min":
			if fieldError.Kind() == reflect.String {
				message = fieldError.Field() + " must be at least " + fieldError.Param() + " characters"
			} else {
				message = fieldError.Field() + " must be at least " + fieldError.Param()
			}
		case "max":
			if fieldError.Kind() == reflect.String {
				message = fieldError.Field() + " must be at most " + fieldError.Param() + " characters"
			} else {
				message = fieldError.Field() + " must be at most " + fieldError.Param()
			}
		case "len":
			message = fieldError.Field() + " must be exactly " + fieldError.Param() + " characters"
		case "numeric":
			message = fieldError.Field() + " must contain only numbers"
		case "oneof":
			message = fieldError.Field() + " must be one of: " + fieldError.Param()
		case "data_uri":
			message = fieldError.Field() + " must be a base64 image data URI"
		default:
			message = fieldError.Field() + " is invalid"
		}

		fields[fieldError.Field()] = message
	}
	return fields
}
