package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"benzback/config"
	"benzback/internal/domains/booking/model"
	"benzback/internal/domains/booking/service"
)

func TestPolicyFromConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(cfg *config.Config)
		wantTerms  model.RentalTerms
		wantTax    float64
		wantWindow time.Duration
	}{
		{
			name: "configured values",
			mutate: func(cfg *config.Config) {
				cfg.Booking.TaxRate = 0.1
				cfg.Booking.AllowedMileage = 150
				cfg.Booking.MileageRate = 0.75
				cfg.Booking.FuelRatePerUnit = 2.5
				cfg.Booking.CleaningFee = 40
				cfg.Booking.AssignmentWindowSeconds = 120
			},
			wantTerms:  model.RentalTerms{AllowedMileage: 150, MileageRate: 0.75, FuelRatePerUnit: 2.5, CleaningFee: 40},
			wantTax:    0.1,
			wantWindow: 2 * time.Minute,
		},
		{
			name:       "zero waives fees and allowance",
			mutate:     func(*config.Config) {},
			wantTerms:  model.RentalTerms{},
			wantTax:    0,
			wantWindow: 0,
		},
		{
			name: "negative values keep defaults",
			mutate: func(cfg *config.Config) {
				cfg.Booking.TaxRate = -1
				cfg.Booking.AllowedMileage = -10
				cfg.Booking.MileageRate = -0.5
				cfg.Booking.FuelRatePerUnit = -3
				cfg.Booking.CleaningFee = -75
				cfg.Booking.AssignmentWindowSeconds = -60
			},
			wantTerms:  model.DefaultRentalTerms(),
			wantTax:    service.DefaultPolicy().TaxRate,
			wantWindow: service.DefaultPolicy().AssignmentWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			tt.mutate(cfg)

			policy := service.PolicyFromConfig(cfg)

			assert.Equal(t, tt.wantTerms, policy.Terms)
			assert.InDelta(t, tt.wantTax, policy.TaxRate, 1e-9)
			assert.Equal(t, tt.wantWindow, policy.AssignmentWindow)
		})
	}
}
