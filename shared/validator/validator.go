package validator

import (
	"benzback/shared/constant"
	"benzback/shared/failure"
	"benzback/shared/timezone"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

// registerTimestampValidation accepts strings in the application's date format.
func registerTimestampValidation(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := timezone.Parse(constant.DateFormat, str)

	return err == nil
}

// registerReferenceValidation accepts an opaque document reference: either an absolute
// URL or a bare identifier without whitespace. Empty is left to required rules.
func registerReferenceValidation(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	if str == constant.Empty {
		return true
	}

	if parsed, err := url.Parse(str); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		return parsed.Host != constant.Empty
	}

	for _, r := range str {
		if r == ' ' || r == '\t' || r == '\n' {
			return false
		}
	}

	return true
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	err := validate.RegisterValidation("empty", func(fl val.FieldLevel) bool {
		return fl.Field().IsZero()
	})
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("timestamp", registerTimestampValidation)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("docref", registerReferenceValidation)
	if err != nil {
		panic(err)
	}
}

// Validate reads from the given io.Reader into the given struct, and then performs validation
// on the struct using the validator package. If the struct is invalid according to the
// validation rules, an error is returned. Otherwise, nil is returned.
// https://github.com/go-playground/validator
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)
	err := decoder.Decode(data)

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	err := validate.Var(field, tag)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}
