package domain

import (
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

var oneHundred = decimal.NewFromInt(100)
var two = decimal.NewFromInt(2)

// ValidateScheme rejects malformed schemes at creation time so Compute never
// fails on stored data.
func ValidateScheme(scheme Scheme) error {
	switch scheme.Type {
	case SchemePercentage:
		if scheme.Percentage == nil || scheme.Percentage.IsNegative() {
			return ErrInvalidScheme
		}
	case SchemeFixed:
		if scheme.FixedAmount == nil || scheme.FixedAmount.IsNegative() {
			return ErrInvalidScheme
		}
	case SchemeHybrid:
		if scheme.Percentage == nil || scheme.Percentage.IsNegative() {
			return ErrInvalidScheme
		}
		if scheme.FixedAmount == nil || scheme.FixedAmount.IsNegative() {
			return ErrInvalidScheme
		}
	case SchemeTiered:
		tiers, err := scheme.TierList()
		if err != nil {
			return ErrInvalidScheme
		}
		return validateTiers(tiers)
	default:
		return ErrInvalidScheme
	}
	return nil
}

// validateTiers requires contiguous [min, max) bands starting at zero, with
// only the last band unbounded. Overlaps and gaps are both rejected.
func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return ErrInvalidScheme
	}
	expectedMin := decimal.Zero
	for i, tier := range tiers {
		if tier.Percentage.IsNegative() {
			return ErrInvalidScheme
		}
		if !tier.Min.Equal(expectedMin) {
			return ErrInvalidScheme
		}
		if tier.Max == nil {
			if i != len(tiers)-1 {
				return ErrInvalidScheme
			}
			return nil
		}
		if !tier.Max.GreaterThan(tier.Min) {
			return ErrInvalidScheme
		}
		expectedMin = *tier.Max
	}
	// Every band bounded: the scheme does not cover large base amounts.
	return ErrInvalidScheme
}

// Compute applies a valid scheme to a base amount. It is total on schemes
// that passed ValidateScheme: no error paths remain at compute time.
func Compute(scheme Scheme, baseAmount decimal.Decimal, hasSecondarySeller bool) Breakdown {
	total := computeTotal(scheme, baseAmount)
	total = clip(total, scheme.MinThreshold, scheme.MaxCap)

	if !hasSecondarySeller {
		return Breakdown{Total: total, Primary: money.Round2(total)}
	}

	// Each party's half rounds independently, so the two shares may differ
	// from an exact split by one minor unit. Accepted, not corrected.
	half := total.Div(two)
	primary := money.Round2(half)
	secondary := money.Round2(half)
	return Breakdown{Total: total, Primary: primary, Secondary: &secondary}
}

func computeTotal(scheme Scheme, baseAmount decimal.Decimal) decimal.Decimal {
	switch scheme.Type {
	case SchemePercentage:
		return baseAmount.Mul(*scheme.Percentage).Div(oneHundred)
	case SchemeFixed:
		return *scheme.FixedAmount
	case SchemeHybrid:
		return baseAmount.Mul(*scheme.Percentage).Div(oneHundred).Add(*scheme.FixedAmount)
	case SchemeTiered:
		tiers, _ := scheme.TierList()
		for _, tier := range tiers {
			if baseAmount.LessThan(tier.Min) {
				continue
			}
			// Lower bound inclusive, upper bound exclusive.
			if tier.Max == nil || baseAmount.LessThan(*tier.Max) {
				return baseAmount.Mul(tier.Percentage).Div(oneHundred)
			}
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

func clip(total decimal.Decimal, minThreshold, maxCap *decimal.Decimal) decimal.Decimal {
	if minThreshold != nil && total.LessThan(*minThreshold) {
		total = *minThreshold
	}
	if maxCap != nil && total.GreaterThan(*maxCap) {
		total = *maxCap
	}
	return total
}
