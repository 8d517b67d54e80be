package model

type Tier string

const (
	TierStandard Tier = "standard"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
)

type TierThreshold struct {
	MinRentals int
	Tier       Tier
}

// LoyaltyPolicy lists thresholds from the highest tier down. Counts below every
// threshold fall back to Base.
type LoyaltyPolicy struct {
	Thresholds []TierThreshold
	Base       Tier
}

var DefaultLoyaltyPolicy = LoyaltyPolicy{
	Thresholds: []TierThreshold{
		{MinRentals: 20, Tier: TierGold},
		{MinRentals: 10, Tier: TierSilver},
		{MinRentals: 5, Tier: TierBronze},
	},
	Base: TierStandard,
}

func (p LoyaltyPolicy) TierFor(rentals int) Tier {
	for _, threshold := range p.Thresholds {
		if rentals >= threshold.MinRentals {
			return threshold.Tier
		}
	}

	return p.Base
}
