package model

import "benzback/shared/model"

const (
	TableName  = "vehicles"
	EntityName = "vehicle"

	FieldID     = "id"
	FieldStatus = "status"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusRented      Status = "rented"
	StatusMaintenance Status = "maintenance"
)

// Vehicle is owned by the fleet service. Bookings only change its status, odometer and
// fuel level during check-in and check-out.
type Vehicle struct {
	ID               string  `db:"id"`
	Name             string  `db:"name"`
	PricePerDay      float64 `db:"price_per_day"`
	CurrentOdometer  float64 `db:"current_odometer"`
	FuelLevel        float64 `db:"fuel_level"`
	FuelTankCapacity float64 `db:"fuel_tank_capacity"`
	Status           Status  `db:"status"`
	model.Metadata
}

func (v *Vehicle) Available() bool {
	return v.Status == StatusAvailable
}
