package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/shopspring/decimal"
)

// fromRules is the deterministic fallback. It always returns at least one
// recommendation: when nothing cheaper exists the patient gets an
// optimize-current entry instead of a silent empty set.
func (g *Generator) fromRules(in Input) []models.RecommendationCandidate {
	var recs []models.RecommendationCandidate

	if in.Triage.CanDoseReduce {
		recs = append(recs, models.RecommendationCandidate{
			Type: models.RecTypeDoseReduction,
			Rationale: fmt.Sprintf(
				"Disease controlled (DLQI within target, %s quadrant); extend %s dosing interval with the standard 25%% conservative cost estimate.",
				in.Triage.Quadrant, in.CurrentDrugName),
			Costs: DoseReductionCosts(in.CurrentAnnualCost, in.CurrentCopay),
		})
	}

	if in.Triage.SwitchRecommended {
		recs = append(recs, g.switchCandidates(in)...)
	}

	if len(recs) == 0 {
		recs = append(recs, models.RecommendationCandidate{
			Type: models.RecTypeOptimizeCurrent,
			Rationale: fmt.Sprintf(
				"%s remains the appropriate therapy; continue current regimen and re-assess adherence and refill timing.",
				in.CurrentDrugName),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		si, oki := savingsOf(recs[i])
		sj, okj := savingsOf(recs[j])
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return si.GreaterThan(sj)
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

// switchCandidates prefers biosimilars of the current product, then cheaper
// preferred-tier alternatives.
func (g *Generator) switchCandidates(in Input) []models.RecommendationCandidate {
	var recs []models.RecommendationCandidate

	for i := range in.Candidates {
		cand := &in.Candidates[i]
		if strings.EqualFold(cand.DrugName, in.CurrentDrugName) {
			continue
		}
		if !cand.Biosimilar || !strings.EqualFold(cand.ReferenceProduct, in.CurrentDrugName) {
			continue
		}
		copay := cand.MemberCopay
		recs = append(recs, models.RecommendationCandidate{
			Type:           models.RecTypeSwitchBiosimilar,
			TargetDrugName: cand.DrugName,
			Rationale: fmt.Sprintf(
				"%s is a biosimilar of %s on tier %d; equivalent efficacy at lower plan cost.",
				cand.DrugName, in.CurrentDrugName, cand.Tier),
			Costs: SwitchCosts(in.CurrentAnnualCost, cand.AnnualCost, in.CurrentCopay, &copay),
		})
	}

	for i := range in.Candidates {
		cand := &in.Candidates[i]
		if strings.EqualFold(cand.DrugName, in.CurrentDrugName) || cand.Biosimilar {
			continue
		}
		if cand.Tier == 0 || cand.Tier > 2 || cand.PriorAuth {
			continue
		}
		if in.CurrentAnnualCost.IsPositive() && cand.AnnualCost.GreaterThanOrEqual(in.CurrentAnnualCost) {
			continue
		}
		copay := cand.MemberCopay
		recs = append(recs, models.RecommendationCandidate{
			Type:           models.RecTypeSwitchPreferred,
			TargetDrugName: cand.DrugName,
			Rationale: fmt.Sprintf(
				"%s sits on preferred tier %d without prior authorization; switching removes the access barrier and reduces plan cost.",
				cand.DrugName, cand.Tier),
			Costs: SwitchCosts(in.CurrentAnnualCost, cand.AnnualCost, in.CurrentCopay, &copay),
		})
	}

	return recs
}

// Recommendations with cost blocks sort ahead of those without.
func savingsOf(rec models.RecommendationCandidate) (decimal.Decimal, bool) {
	if rec.Costs == nil {
		return decimal.Zero, false
	}
	return rec.Costs.AnnualSavings, true
}
