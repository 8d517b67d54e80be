// Package settlement computes the charges owed when a rental is returned.
package settlement

import (
	"benzback/internal/domains/booking/model"
	"benzback/shared"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

type CleaningPolicy string

const (
	// CleaningPolicyLegacy charges the fee when cleaning is NOT required. This matches the
	// historical behaviour and stays the default until the business confirms the rule.
	CleaningPolicyLegacy             CleaningPolicy = "legacy"
	CleaningPolicyChargeWhenRequired CleaningPolicy = "charge_when_required"
)

const (
	fullTank     = 100.0
	minFuelLevel = 0.0
	maxFuelLevel = 100.0
)

func ParseCleaningPolicy(value string) CleaningPolicy {
	switch CleaningPolicy(value) {
	case CleaningPolicyLegacy, CleaningPolicyChargeWhenRequired:
		return CleaningPolicy(value)
	case "":
		return CleaningPolicyLegacy
	default:
		log.Warn().Str("policy", value).Msg("unknown cleaning policy, falling back to legacy")

		return CleaningPolicyLegacy
	}
}

func (p CleaningPolicy) charge(cleaningRequired bool, fee float64) float64 {
	if p == CleaningPolicyChargeWhenRequired {
		if cleaningRequired {
			return fee
		}

		return 0
	}

	if cleaningRequired {
		return 0
	}

	return fee
}

type Input struct {
	StartOdometer     float64
	EndOdometer       float64
	CheckInFuelLevel  *float64
	CheckOutFuelLevel float64
	FuelTankCapacity  float64
	CleaningRequired  bool
	TotalPrice        float64
	Terms             model.RentalTerms
}

type Calculator struct {
	policy CleaningPolicy
}

func New(policy CleaningPolicy) Calculator {
	return Calculator{policy: policy}
}

func (c Calculator) Policy() CleaningPolicy {
	return c.policy
}

// Calculate is pure: the same input always yields the same breakdown. Monetary fields
// are rounded to cents.
func (c Calculator) Calculate(in Input) (model.Settlement, error) {
	if err := validate(in); err != nil {
		return model.Settlement{}, err
	}

	checkInFuel := fullTank
	if in.CheckInFuelLevel != nil {
		checkInFuel = *in.CheckInFuelLevel
	}

	mileageUsed := math.Max(0, in.EndOdometer-in.StartOdometer)
	mileageOverage := math.Max(0, mileageUsed-in.Terms.AllowedMileage)
	mileageCharge := shared.RoundCents(mileageOverage * in.Terms.MileageRate)

	fuelDeficitPct := math.Max(0, checkInFuel-in.CheckOutFuelLevel)
	fuelDeficitUnits := fuelDeficitPct / fullTank * in.FuelTankCapacity
	fuelCharge := shared.RoundCents(fuelDeficitUnits * in.Terms.FuelRatePerUnit)

	cleaningCharge := shared.RoundCents(c.policy.charge(in.CleaningRequired, in.Terms.CleaningFee))

	totalAdditional := shared.RoundCents(mileageCharge + fuelCharge + cleaningCharge)

	return model.Settlement{
		MileageUsed:      mileageUsed,
		MileageOverage:   mileageOverage,
		MileageCharge:    mileageCharge,
		FuelDeficitPct:   fuelDeficitPct,
		FuelDeficitUnits: fuelDeficitUnits,
		FuelCharge:       fuelCharge,
		CleaningCharge:   cleaningCharge,
		TotalAdditional:  totalAdditional,
		TotalCharges:     shared.RoundCents(in.TotalPrice + totalAdditional),
	}, nil
}

func validate(in Input) error {
	if in.EndOdometer < in.StartOdometer {
		return fmt.Errorf("%w: %.1f < %.1f", model.ErrInvalidOdometerReading, in.EndOdometer, in.StartOdometer)
	}

	if in.CheckInFuelLevel != nil && !ValidFuelLevel(*in.CheckInFuelLevel) {
		return fmt.Errorf("%w: check-in %.1f", model.ErrInvalidFuelLevel, *in.CheckInFuelLevel)
	}

	if !ValidFuelLevel(in.CheckOutFuelLevel) {
		return fmt.Errorf("%w: check-out %.1f", model.ErrInvalidFuelLevel, in.CheckOutFuelLevel)
	}

	terms := in.Terms
	if terms.AllowedMileage < 0 || terms.MileageRate < 0 || terms.CleaningFee < 0 || terms.FuelRatePerUnit < 0 || in.FuelTankCapacity < 0 {
		return model.ErrInvalidRentalTerms
	}

	return nil
}

// ValidFuelLevel reports whether level is a percentage in [0, 100].
func ValidFuelLevel(level float64) bool {
	return level >= minFuelLevel && level <= maxFuelLevel
}
