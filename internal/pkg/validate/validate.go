package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/auirah-api/internal/domain"
)

// v is the package-level singleton validator. Field names are reported
// using their json tag so messages line up with request bodies.
var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return val
}()

// Struct validates s using its validate tags. A failure is returned as a
// *domain.ValidationError keyed by json field name.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(map[string][]string, len(ve))
	var first string
	for _, fe := range ve {
		field := fieldPath(fe)
		msg := message(field, fe)
		if first == "" {
			first = msg
		}
		fields[field] = append(fields[field], msg)
	}
	return &domain.ValidationError{Message: first, Fields: fields}
}

// fieldPath drops the top-level struct name: "CreateTaskRequest.labels[0]" becomes "labels.0".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	return strings.ReplaceAll(ns, "]", "")
}

func message(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("The %s field must not be greater than %s.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "min":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("The %s field must be at least %s.", label, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	case "len":
		return fmt.Sprintf("The %s field must be %s characters.", label, fe.Param())
	case "numeric":
		return fmt.Sprintf("The %s field must be a number.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "datetime":
		return fmt.Sprintf("The %s field must match the format %s.", label, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
