package model

import "benzback/shared/model"

const (
	TableName  = "users"
	EntityName = "user"

	FieldID    = "id"
	FieldEmail = "email"
	FieldRole  = "role"
)

type User struct {
	ID          string           `db:"id"`
	Email       string           `db:"email"`
	FullName    string           `db:"full_name"`
	Role        string           `db:"role"`
	DriverIDs   model.StringList `db:"driver_ids"`
	RentalCount int              `db:"rental_count"`
	LoyaltyTier Tier             `db:"loyalty_tier"`
	model.Metadata
}

func (u *User) Clone() User {
	clone := *u
	clone.DriverIDs = u.DriverIDs.Clone()

	return clone
}

// AddDriver links a driver record to the user once.
func (u *User) AddDriver(driverID string) {
	if u.DriverIDs.Contains(driverID) {
		return
	}

	u.DriverIDs = append(u.DriverIDs, driverID)
}

// RecordCompletedRental bumps the rental count and re-derives the loyalty tier.
func (u *User) RecordCompletedRental(policy LoyaltyPolicy) {
	u.RentalCount++
	u.LoyaltyTier = policy.TierFor(u.RentalCount)
}
