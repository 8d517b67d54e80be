package model

import "benzback/shared/model"

const (
	TableName  = "drivers"
	EntityName = "driver"

	FieldID                = "id"
	FieldUserID            = "user_id"
	FieldProfessional      = "professional"
	FieldLicenseVerified   = "license_verified"
	FieldInsuranceVerified = "insurance_verified"
)

type Driver struct {
	ID                string `db:"id"`
	UserID            string `db:"user_id"`
	LicenseRef        string `db:"license_ref"`
	InsuranceRef      string `db:"insurance_ref"`
	LicenseVerified   bool   `db:"license_verified"`
	InsuranceVerified bool   `db:"insurance_verified"`
	Professional      bool   `db:"professional"`
	model.Metadata
}

func (d *Driver) Verified() bool {
	return d.LicenseVerified && d.InsuranceVerified
}

// EligibleForAssignment reports whether the driver may accept other renters' bookings.
func (d *Driver) EligibleForAssignment() bool {
	return d.Professional && d.Verified()
}
