package failure

import (
	"errors"
	"net/http"
)

// Failure is an error that carries the HTTP status it should be answered with. Domain
// rejections are declared as *Failure sentinels so callers can match them with errors.Is.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

// BadRequest returns a new Failure with code for bad requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure with code for bad requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Message: msg,
	}
}

func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Message: msg,
	}
}

func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Message: msg,
	}
}

// As returns the Failure wrapped in err, if any.
func As(err error) (*Failure, bool) {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail, true
	}

	return nil, false
}

// GetCode returns the status of the Failure wrapped in err, or 500 for any other error.
func GetCode(err error) int {
	if fail, ok := As(err); ok {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// IsRejection reports whether err is a client-side Failure (4xx) rather than a fault.
func IsRejection(err error) bool {
	code := GetCode(err)

	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}

// Public returns the message that is safe to show the caller. Anything that is not a
// Failure is replaced with fallback.
func Public(err error, fallback string) string {
	if fail, ok := As(err); ok {
		return fail.Message
	}

	return fallback
}
