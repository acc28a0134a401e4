package recommend

import (
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/shopspring/decimal"
)

// The 25% dose-reduction estimate is a conservative placeholder, not a
// frequency-derived computation.
var (
	doseReductionFactor = decimal.NewFromFloat(0.75)
	monthsPerYear       = decimal.NewFromInt(12)
	hundred             = decimal.NewFromInt(100)
)

// DoseReductionCosts projects costs for extending the dosing interval of the
// current drug. Returns nil when the current annual cost is unknown or zero;
// the recommendation is then emitted without a cost block.
func DoseReductionCosts(currentAnnual, currentCopay decimal.Decimal) *models.CostProjection {
	if currentAnnual.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	recommended := currentAnnual.Mul(doseReductionFactor).Round(2)
	savings := currentAnnual.Sub(recommended)

	return &models.CostProjection{
		CurrentAnnualCost:     currentAnnual,
		RecommendedAnnualCost: recommended,
		AnnualSavings:         savings,
		SavingsPercent:        savings.Div(currentAnnual).Mul(hundred).Round(1),
		MonthlyOutOfPocket:    monthlyOutOfPocket(currentCopay, nil),
	}
}

// SwitchCosts projects costs for moving the patient to a target formulary
// drug. Returns nil when the current annual cost is unknown or zero so a
// division by zero can never happen.
func SwitchCosts(currentAnnual, targetAnnual, currentCopay decimal.Decimal, targetCopay *decimal.Decimal) *models.CostProjection {
	if currentAnnual.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	savings := currentAnnual.Sub(targetAnnual)

	return &models.CostProjection{
		CurrentAnnualCost:     currentAnnual,
		RecommendedAnnualCost: targetAnnual,
		AnnualSavings:         savings,
		SavingsPercent:        savings.Div(currentAnnual).Mul(hundred).Round(1),
		MonthlyOutOfPocket:    monthlyOutOfPocket(currentCopay, targetCopay),
	}
}

// monthlyOutOfPocket divides the member copay by 12. When the target copay is
// unknown, the current copay gets the same 25%-reduction placeholder as the
// drug cost.
func monthlyOutOfPocket(currentCopay decimal.Decimal, targetCopay *decimal.Decimal) *decimal.Decimal {
	if targetCopay != nil {
		if targetCopay.LessThan(decimal.Zero) {
			return nil
		}
		monthly := targetCopay.Div(monthsPerYear).Round(2)
		return &monthly
	}
	if currentCopay.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	monthly := currentCopay.Mul(doseReductionFactor).Div(monthsPerYear).Round(2)
	return &monthly
}
