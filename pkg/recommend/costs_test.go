package recommend

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSwitchCosts(t *testing.T) {
	current := decimal.NewFromInt(44000)
	target := decimal.NewFromInt(30000)

	proj := SwitchCosts(current, target, decimal.NewFromInt(1200), nil)
	if proj == nil {
		t.Fatal("expected a cost projection")
	}
	if !proj.AnnualSavings.Equal(decimal.NewFromInt(14000)) {
		t.Fatalf("expected savings 14000, got %s", proj.AnnualSavings)
	}
	if !proj.SavingsPercent.Equal(decimal.NewFromFloat(31.8)) {
		t.Fatalf("expected savings percent 31.8, got %s", proj.SavingsPercent)
	}
	if !proj.RecommendedAnnualCost.Equal(target) {
		t.Fatalf("expected recommended cost %s, got %s", target, proj.RecommendedAnnualCost)
	}
}

func TestDoseReductionIsAlwaysTwentyFivePercent(t *testing.T) {
	for _, annual := range []int64{44000, 61000, 500, 12345} {
		current := decimal.NewFromInt(annual)
		proj := DoseReductionCosts(current, decimal.Zero)
		if proj == nil {
			t.Fatalf("expected projection for annual cost %d", annual)
		}
		if !proj.RecommendedAnnualCost.Equal(current.Mul(decimal.NewFromFloat(0.75)).Round(2)) {
			t.Fatalf("annual %d: expected 75%% of current, got %s", annual, proj.RecommendedAnnualCost)
		}
		if !proj.SavingsPercent.Equal(decimal.NewFromInt(25)) {
			t.Fatalf("annual %d: expected 25%% savings, got %s", annual, proj.SavingsPercent)
		}
	}
}

func TestMissingCurrentCostShortCircuits(t *testing.T) {
	if proj := DoseReductionCosts(decimal.Zero, decimal.NewFromInt(100)); proj != nil {
		t.Fatalf("expected nil projection for zero current cost, got %+v", proj)
	}
	if proj := SwitchCosts(decimal.Zero, decimal.NewFromInt(30000), decimal.Zero, nil); proj != nil {
		t.Fatalf("expected nil projection for zero current cost, got %+v", proj)
	}
}

func TestMonthlyOutOfPocket(t *testing.T) {
	targetCopay := decimal.NewFromInt(600)
	proj := SwitchCosts(decimal.NewFromInt(44000), decimal.NewFromInt(30000), decimal.NewFromInt(1200), &targetCopay)
	if proj.MonthlyOutOfPocket == nil {
		t.Fatal("expected monthly out-of-pocket")
	}
	if !proj.MonthlyOutOfPocket.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50/month, got %s", proj.MonthlyOutOfPocket)
	}

	// No target copay: 25%-reduction placeholder on the current copay.
	reduced := DoseReductionCosts(decimal.NewFromInt(44000), decimal.NewFromInt(1200))
	if reduced.MonthlyOutOfPocket == nil {
		t.Fatal("expected placeholder monthly out-of-pocket")
	}
	if !reduced.MonthlyOutOfPocket.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected 75/month, got %s", reduced.MonthlyOutOfPocket)
	}
}
