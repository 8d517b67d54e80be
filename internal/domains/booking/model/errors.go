package model

import (
	"benzback/shared/failure"
	"net/http"
)

// Validation errors.
var (
	ErrInvalidDateRange        = &failure.Failure{Code: http.StatusBadRequest, Message: "return date must be after pickup date"}
	ErrInvalidOdometerReading  = &failure.Failure{Code: http.StatusBadRequest, Message: "check-out odometer is below the check-in reading"}
	ErrOdometerRegression      = &failure.Failure{Code: http.StatusBadRequest, Message: "odometer is below the vehicle's current reading"}
	ErrInvalidFuelLevel        = &failure.Failure{Code: http.StatusBadRequest, Message: "fuel level must be between 0 and 100"}
	ErrInvalidRentalTerms      = &failure.Failure{Code: http.StatusBadRequest, Message: "rental terms must not be negative"}
	ErrPickupNotYetDue         = &failure.Failure{Code: http.StatusBadRequest, Message: "pickup date has not been reached"}
	ErrInvalidDriverDocuments  = &failure.Failure{Code: http.StatusBadRequest, Message: "license and insurance references must be supplied together"}
	ErrPaymentSessionMismatch  = &failure.Failure{Code: http.StatusBadRequest, Message: "payment session does not match the booking"}
	ErrRequesterNotBookingUser = &failure.Failure{Code: http.StatusForbidden, Message: "booking belongs to another user"}
)

// Conflict errors. Callers must not retry the same operation.
var (
	ErrAlreadyAssigned     = &failure.Failure{Code: http.StatusConflict, Message: "booking request is no longer open"}
	ErrInvalidTransition   = &failure.Failure{Code: http.StatusConflict, Message: "status transition is not allowed"}
	ErrInvalidBookingState = &failure.Failure{Code: http.StatusConflict, Message: "booking is not in a state that allows this operation"}
	ErrVehicleUnavailable  = &failure.Failure{Code: http.StatusConflict, Message: "vehicle is not available"}
	ErrDriverNotEligible   = &failure.Failure{Code: http.StatusConflict, Message: "driver is not a verified professional driver"}
)

// Not found errors.
var (
	ErrBookingNotFound = &failure.Failure{Code: http.StatusNotFound, Message: "booking not found"}
	ErrDriverNotFound  = &failure.Failure{Code: http.StatusNotFound, Message: "driver not found"}
	ErrVehicleNotFound = &failure.Failure{Code: http.StatusNotFound, Message: "vehicle not found"}
	ErrUserNotFound    = &failure.Failure{Code: http.StatusNotFound, Message: "user not found"}
)
