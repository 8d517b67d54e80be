package service

import (
	"benzback/config"
	"benzback/internal/domains/booking/model"
	"benzback/internal/domains/booking/settlement"
	uModel "benzback/internal/domains/user/model"
	"benzback/internal/presence"
	"benzback/shared"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultTaxRate           = 0.08
	defaultAssignmentWindow  = 5 * time.Minute
	defaultNotificationTopic = "booking.notifications"
)

// Policy holds the business constants a booking is priced and settled with.
type Policy struct {
	TaxRate           float64
	Terms             model.RentalTerms
	AssignmentWindow  time.Duration
	PresenceTTL       time.Duration
	NotificationTopic string
	Settlement        settlement.Calculator
	Loyalty           uModel.LoyaltyPolicy
}

// PolicyFromConfig reads the booking section. Zero is a valid rate or fee; negative values
// keep the defaults.
func PolicyFromConfig(cfg *config.Config) Policy {
	policy := DefaultPolicy()
	booking := cfg.Booking

	override(&policy.TaxRate, booking.TaxRate, "tax_rate")
	override(&policy.Terms.AllowedMileage, booking.AllowedMileage, "allowed_mileage")
	override(&policy.Terms.MileageRate, booking.MileageRate, "mileage_rate")
	override(&policy.Terms.FuelRatePerUnit, booking.FuelRatePerUnit, "fuel_rate_per_unit")
	override(&policy.Terms.CleaningFee, booking.CleaningFee, "cleaning_fee")

	if booking.AssignmentWindowSeconds >= 0 {
		policy.AssignmentWindow = time.Duration(booking.AssignmentWindowSeconds) * time.Second
	} else {
		log.Warn().Int("assignment_window_seconds", booking.AssignmentWindowSeconds).Msg("negative booking setting ignored")
	}

	if cfg.Kafka.Topic.Notification != "" {
		policy.NotificationTopic = cfg.Kafka.Topic.Notification
	}

	policy.PresenceTTL = presence.TTLFromConfig(cfg)
	policy.Settlement = settlement.New(settlement.ParseCleaningPolicy(booking.CleaningPolicy))

	return policy
}

func override(target *float64, value float64, name string) {
	if value < 0 {
		log.Warn().Float64(name, value).Msg("negative booking setting ignored")

		return
	}

	*target = value
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:           defaultTaxRate,
		Terms:             model.DefaultRentalTerms(),
		AssignmentWindow:  defaultAssignmentWindow,
		PresenceTTL:       presence.TTLFromConfig(&config.Config{}),
		NotificationTopic: defaultNotificationTopic,
		Settlement:        settlement.New(settlement.CleaningPolicyLegacy),
		Loyalty:           uModel.DefaultLoyaltyPolicy,
	}
}

// Price returns the rental days and the rounded base, tax and total for the period.
func (p Policy) Price(pickup, ret time.Time, pricePerDay float64) (days int, base, tax, total float64, err error) {
	days = rentalDays(pickup, ret)
	if days <= 0 {
		return 0, 0, 0, 0, model.ErrInvalidDateRange
	}

	base = shared.RoundCents(float64(days) * pricePerDay)
	tax = shared.RoundCents(base * p.TaxRate)
	total = shared.RoundCents(base + tax)

	return days, base, tax, total, nil
}
