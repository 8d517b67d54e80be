package dto

import (
	"benzback/internal/domains/booking/model"
	"benzback/shared"
	"benzback/shared/constant"
	gDto "benzback/shared/dto"
	"benzback/shared/timezone"
	"time"
)

type CreateBookingRequest struct {
	VehicleID      string `json:"vehicle_id"      validate:"required"`
	PickupDate     string `json:"pickup_date"     validate:"required,timestamp"`
	ReturnDate     string `json:"return_date"     validate:"required,timestamp"`
	PickupLocation string `json:"pickup_location" validate:"required,max=255"`
	DriverID       string `json:"driver_id"       validate:"omitempty"`
	LicenseRef     string `json:"license_ref"     validate:"required_with=InsuranceRef,docref,max=255"`
	InsuranceRef   string `json:"insurance_ref"   validate:"required_with=LicenseRef,docref,max=255"`
}

// ParseDates reads both dates as RFC3339 timestamps in the application timezone.
func (c *CreateBookingRequest) ParseDates() (pickup, ret time.Time, err error) {
	pickup, err = timezone.Parse(constant.DateFormat, c.PickupDate)
	if err != nil {
		return pickup, ret, err //nolint:wrapcheck
	}

	ret, err = timezone.Parse(constant.DateFormat, c.ReturnDate)
	if err != nil {
		return pickup, ret, err //nolint:wrapcheck
	}

	return pickup, ret, nil
}

func (c *CreateBookingRequest) HasDocuments() bool {
	return c.LicenseRef != constant.Empty || c.InsuranceRef != constant.Empty
}

type CheckInRequest struct {
	Odometer  float64  `json:"odometer"   validate:"gte=0"`
	FuelLevel *float64 `json:"fuel_level" validate:"omitempty,gte=0,lte=100"`
	Notes     string   `json:"notes"      validate:"omitempty,max=1000"`
	Photos    []string `json:"photos"     validate:"omitempty,max=20,dive,url"`
}

type CheckOutRequest struct {
	Odometer         float64  `json:"odometer"          validate:"gte=0"`
	FuelLevel        float64  `json:"fuel_level"        validate:"gte=0,lte=100"`
	CleaningRequired bool     `json:"cleaning_required"`
	DamageNotes      string   `json:"damage_notes"      validate:"omitempty,max=1000"`
	Notes            string   `json:"notes"             validate:"omitempty,max=1000"`
	Photos           []string `json:"photos"            validate:"omitempty,max=20,dive,url"`
}

// PaymentWebhookRequest is the payment provider's checkout-completed event. AmountTotal is
// in cents.
type PaymentWebhookRequest struct {
	SessionID   string `json:"session_id"   validate:"required"`
	BookingID   string `json:"booking_id"   validate:"required"`
	AmountTotal int64  `json:"amount_total" validate:"gte=0"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=license_required verification_pending pending_payment cancelled no_show overdue"`
	Note   string `json:"note"   validate:"omitempty,max=500"`
}

type StatusEntryResponse struct {
	Seq    int    `json:"seq"`
	Status string `json:"status"`
	At     string `json:"at"`
	Actor  string `json:"actor"`
	Note   string `json:"note"`
}

type BookingResponse struct {
	ID                   string                  `json:"id"`
	UserID               string                  `json:"user_id"`
	VehicleID            string                  `json:"vehicle_id"`
	DriverID             string                  `json:"driver_id,omitempty"`
	ProfessionalDriverID string                  `json:"professional_driver_id,omitempty"`
	PickupDate           string                  `json:"pickup_date"`
	ReturnDate           string                  `json:"return_date"`
	PickupLocation       string                  `json:"pickup_location"`
	RentalDays           int                     `json:"rental_days"`
	BasePrice            float64                 `json:"base_price"`
	TaxAmount            float64                 `json:"tax_amount"`
	TotalPrice           float64                 `json:"total_price"`
	AdditionalCharges    float64                 `json:"additional_charges"`
	TotalCharges         float64                 `json:"total_charges"`
	Status               string                  `json:"status"`
	DriverAssigned       bool                    `json:"driver_assigned"`
	DriverRequestStatus  string                  `json:"driver_request_status"`
	RequestedAt          string                  `json:"requested_at,omitempty"`
	OfferedDriverIDs     []string                `json:"offered_driver_ids"`
	PaymentStatus        string                  `json:"payment_status"`
	PaidAt               string                  `json:"paid_at,omitempty"`
	RentalTerms          model.RentalTerms       `json:"rental_terms"`
	CheckIn              *model.CheckInSnapshot  `json:"check_in,omitempty"`
	CheckOut             *model.CheckOutSnapshot `json:"check_out,omitempty"`
	Settlement           *model.Settlement       `json:"settlement,omitempty"`
	History              []StatusEntryResponse   `json:"history,omitempty"`
	gDto.Metadata
}

// FromModel renders b as seen at now. A pending driver request older than window is
// reported as expired.
func (r *BookingResponse) FromModel(b model.Booking, now time.Time, window time.Duration) {
	r.ID = b.ID
	r.UserID = b.UserID
	r.VehicleID = b.VehicleID
	r.DriverID = b.DriverID
	r.ProfessionalDriverID = b.ProfessionalDriverID
	r.PickupDate = timezone.Format(b.PickupDate, constant.DateFormat)
	r.ReturnDate = timezone.Format(b.ReturnDate, constant.DateFormat)
	r.PickupLocation = b.PickupLocation
	r.RentalDays = b.RentalDays
	r.BasePrice = b.BasePrice
	r.TaxAmount = b.TaxAmount
	r.TotalPrice = b.TotalPrice
	r.AdditionalCharges = b.AdditionalCharges
	r.TotalCharges = b.TotalCharges
	r.Status = b.Status.String()
	r.DriverAssigned = b.DriverAssigned
	r.DriverRequestStatus = string(b.EffectiveRequestStatus(now, window))
	r.OfferedDriverIDs = []string(b.OfferedDriverIDs.Clone())
	r.PaymentStatus = string(b.PaymentStatus)
	r.RentalTerms = b.RentalTerms
	r.CheckIn = b.CheckIn
	r.CheckOut = b.CheckOut
	r.Settlement = b.Settlement
	r.Metadata.FromModel(b.Metadata)

	if r.OfferedDriverIDs == nil {
		r.OfferedDriverIDs = []string{}
	}

	if b.RequestedAt != nil {
		r.RequestedAt = timezone.Format(*b.RequestedAt, constant.DateFormat)
	}

	if b.PaidAt != nil {
		r.PaidAt = timezone.Format(*b.PaidAt, constant.DateFormat)
	}

	if len(b.History) > 0 {
		r.History = make([]StatusEntryResponse, len(b.History))
		for i, entry := range b.History {
			r.History[i] = StatusEntryResponse{
				Seq:    entry.Seq,
				Status: entry.Status.String(),
				At:     timezone.Format(entry.At, constant.DateFormat),
				Actor:  entry.Actor,
				Note:   entry.Note,
			}
		}
	}
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int, now time.Time, window time.Duration) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod, now, window)
	}
}
