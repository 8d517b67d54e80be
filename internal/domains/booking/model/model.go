package model

import (
	gModel "benzback/shared/model"
	"database/sql/driver"
	"slices"
	"time"
)

const (
	TableName        = "bookings"
	HistoryTableName = "booking_status_histories"
	EntityName       = "booking"
	HistoryEntity    = "booking_status_history"

	FieldID                  = "id"
	FieldUserID              = "user_id"
	FieldVehicleID           = "vehicle_id"
	FieldStatus              = "status"
	FieldPickupDate          = "pickup_date"
	FieldReturnDate          = "return_date"
	FieldDriverRequestStatus = "driver_request_status"
	FieldRequestedAt         = "requested_at"
	FieldPaymentSessionID    = "payment_session_id"
	FieldBookingID           = "booking_id"
	FieldSeq                 = "seq"
)

const HistoryNoteCreated = "Booking created"

// RentalTerms are copied onto the booking at creation so later policy changes never
// alter an open rental's settlement.
type RentalTerms struct {
	AllowedMileage  float64 `db:"allowed_mileage"    json:"allowed_mileage"`
	MileageRate     float64 `db:"mileage_rate"       json:"mileage_rate"`
	CleaningFee     float64 `db:"cleaning_fee"       json:"cleaning_fee"`
	FuelRatePerUnit float64 `db:"fuel_rate_per_unit" json:"fuel_rate_per_unit"`
}

func DefaultRentalTerms() RentalTerms {
	return RentalTerms{
		AllowedMileage:  200,
		MileageRate:     0.5,
		CleaningFee:     75,
		FuelRatePerUnit: 3.1,
	}
}

type StatusEntry struct {
	BookingID string    `db:"booking_id" json:"-"`
	Seq       int       `db:"seq"        json:"seq"`
	Status    Status    `db:"status"     json:"status"`
	At        time.Time `db:"changed_at" json:"at"`
	Actor     string    `db:"actor"      json:"actor"`
	Note      string    `db:"note"       json:"note"`
}

type CheckInSnapshot struct {
	At        time.Time `json:"at"`
	Odometer  float64   `json:"odometer"`
	FuelLevel *float64  `json:"fuel_level,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Photos    []string  `json:"photos,omitempty"`
	Actor     string    `json:"actor"`
}

func (c CheckInSnapshot) Value() (driver.Value, error) {
	return gModel.MarshalJSONColumn(c)
}

func (c *CheckInSnapshot) Scan(src any) error {
	return gModel.ScanJSONColumn(src, c)
}

type CheckOutSnapshot struct {
	At               time.Time `json:"at"`
	Odometer         float64   `json:"odometer"`
	FuelLevel        float64   `json:"fuel_level"`
	CleaningRequired bool      `json:"cleaning_required"`
	DamageNotes      string    `json:"damage_notes,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Photos           []string  `json:"photos,omitempty"`
	Actor            string    `json:"actor"`
}

func (c CheckOutSnapshot) Value() (driver.Value, error) {
	return gModel.MarshalJSONColumn(c)
}

func (c *CheckOutSnapshot) Scan(src any) error {
	return gModel.ScanJSONColumn(src, c)
}

// Settlement is the charge breakdown computed at check-out.
type Settlement struct {
	MileageUsed      float64 `json:"mileage_used"`
	MileageOverage   float64 `json:"mileage_overage"`
	MileageCharge    float64 `json:"mileage_charge"`
	FuelDeficitPct   float64 `json:"fuel_deficit_pct"`
	FuelDeficitUnits float64 `json:"fuel_deficit_units"`
	FuelCharge       float64 `json:"fuel_charge"`
	CleaningCharge   float64 `json:"cleaning_charge"`
	TotalAdditional  float64 `json:"total_additional"`
	TotalCharges     float64 `json:"total_charges"`
}

func (s Settlement) Value() (driver.Value, error) {
	return gModel.MarshalJSONColumn(s)
}

func (s *Settlement) Scan(src any) error {
	return gModel.ScanJSONColumn(src, s)
}

type Booking struct {
	ID                   string              `db:"id"`
	UserID               string              `db:"user_id"`
	VehicleID            string              `db:"vehicle_id"`
	DriverID             string              `db:"driver_id"`
	ProfessionalDriverID string              `db:"professional_driver_id"`
	PickupDate           time.Time           `db:"pickup_date"`
	ReturnDate           time.Time           `db:"return_date"`
	PickupLocation       string              `db:"pickup_location"`
	RentalDays           int                 `db:"rental_days"`
	BasePrice            float64             `db:"base_price"`
	TaxAmount            float64             `db:"tax_amount"`
	TotalPrice           float64             `db:"total_price"`
	AdditionalCharges    float64             `db:"additional_charges"`
	TotalCharges         float64             `db:"total_charges"`
	Status               Status              `db:"status"`
	DriverAssigned       bool                `db:"driver_assigned"`
	DriverRequestStatus  DriverRequestStatus `db:"driver_request_status"`
	RequestedAt          *time.Time          `db:"requested_at"`
	OfferedDriverIDs     gModel.StringList   `db:"offered_driver_ids"`
	PaymentStatus        PaymentStatus       `db:"payment_status"`
	PaymentSessionID     string              `db:"payment_session_id"`
	PaidAt               *time.Time          `db:"paid_at"`
	CheckIn              *CheckInSnapshot    `db:"check_in"`
	CheckOut             *CheckOutSnapshot   `db:"check_out"`
	Settlement           *Settlement         `db:"settlement"`
	RentalTerms
	gModel.Metadata

	// History is stored in its own table and loaded by the repository.
	History []StatusEntry
}

// EffectiveRequestStatus reports a pending driver request older than window as expired,
// whether or not the sweep has persisted it yet.
func (b *Booking) EffectiveRequestStatus(now time.Time, window time.Duration) DriverRequestStatus {
	if b.DriverRequestStatus == "" {
		return DriverRequestNone
	}

	if b.DriverRequestStatus != DriverRequestPending || b.RequestedAt == nil || window <= 0 {
		return b.DriverRequestStatus
	}

	if !now.Before(b.RequestedAt.Add(window)) {
		return DriverRequestExpired
	}

	return DriverRequestPending
}

// LastHistorySeq returns the sequence of the newest history entry, or zero.
func (b *Booking) LastHistorySeq() int {
	if len(b.History) == 0 {
		return 0
	}

	return b.History[len(b.History)-1].Seq
}

func (b *Booking) Clone() Booking {
	clone := *b
	clone.OfferedDriverIDs = b.OfferedDriverIDs.Clone()
	clone.History = slices.Clone(b.History)

	if b.RequestedAt != nil {
		at := *b.RequestedAt
		clone.RequestedAt = &at
	}

	if b.PaidAt != nil {
		at := *b.PaidAt
		clone.PaidAt = &at
	}

	if b.CheckIn != nil {
		checkIn := *b.CheckIn
		checkIn.Photos = slices.Clone(b.CheckIn.Photos)

		if b.CheckIn.FuelLevel != nil {
			fuel := *b.CheckIn.FuelLevel
			checkIn.FuelLevel = &fuel
		}

		clone.CheckIn = &checkIn
	}

	if b.CheckOut != nil {
		checkOut := *b.CheckOut
		checkOut.Photos = slices.Clone(b.CheckOut.Photos)
		clone.CheckOut = &checkOut
	}

	if b.Settlement != nil {
		settlement := *b.Settlement
		clone.Settlement = &settlement
	}

	return clone
}

// ListFilter narrows booking listings. Zero fields do not filter.
type ListFilter struct {
	UserID              string
	VehicleID           string
	Status              Status
	Statuses            []Status
	DriverRequestStatus DriverRequestStatus
	RequestedBefore     *time.Time
	ReturnBefore        *time.Time
	// RequestCutoff makes DriverRequestStatus compare the effective request status: a
	// pending request made at or before the cutoff counts as expired.
	RequestCutoff *time.Time
}

// RequestStatus is the driver request status the filter compares against.
func (f ListFilter) RequestStatus(b *Booking) DriverRequestStatus {
	if f.RequestCutoff == nil || b.DriverRequestStatus != DriverRequestPending || b.RequestedAt == nil {
		return b.DriverRequestStatus
	}

	if b.RequestedAt.After(*f.RequestCutoff) {
		return DriverRequestPending
	}

	return DriverRequestExpired
}

// Matches applies the filter to a single booking.
func (f ListFilter) Matches(b *Booking) bool {
	switch {
	case f.UserID != "" && b.UserID != f.UserID:
		return false
	case f.VehicleID != "" && b.VehicleID != f.VehicleID:
		return false
	case f.Status != "" && b.Status != f.Status:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status):
		return false
	case f.DriverRequestStatus != "" && f.RequestStatus(b) != f.DriverRequestStatus:
		return false
	case f.RequestedBefore != nil && (b.RequestedAt == nil || b.RequestedAt.After(*f.RequestedBefore)):
		return false
	case f.ReturnBefore != nil && b.ReturnDate.After(*f.ReturnBefore):
		return false
	}

	return true
}
