package model

import (
	"benzback/shared/model"
	"time"
)

const (
	TableName  = "rental_sessions"
	EntityName = "rental_session"

	FieldID        = "id"
	FieldBookingID = "booking_id"
	FieldStatus    = "status"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Session tracks the period a renter physically holds a vehicle.
type Session struct {
	ID            string     `db:"id"`
	BookingID     string     `db:"booking_id"`
	UserID        string     `db:"user_id"`
	VehicleID     string     `db:"vehicle_id"`
	StartedAt     time.Time  `db:"started_at"`
	StartOdometer float64    `db:"start_odometer"`
	EndedAt       *time.Time `db:"ended_at"`
	EndOdometer   *float64   `db:"end_odometer"`
	Status        Status     `db:"status"`
	model.Metadata
}

func (s *Session) Close(at time.Time, odometer float64) {
	s.EndedAt = &at
	s.EndOdometer = &odometer
	s.Status = StatusClosed
}
