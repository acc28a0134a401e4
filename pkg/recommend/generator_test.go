package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/triage"
	"github.com/shopspring/decimal"
)

func init() {
	logger.Init()
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func testInput() Input {
	return Input{
		Diagnosis:       "psoriasis",
		CurrentDrugName: "Humira",
		Triage: triage.Result{
			Stable:            true,
			CanDoseReduce:     true,
			SwitchRecommended: true,
			Quadrant:          triage.QuadrantStableNonAligned,
		},
		CurrentAnnualCost: decimal.NewFromInt(44000),
		CurrentCopay:      decimal.NewFromInt(1200),
		Candidates: []formulary.Drug{
			{DrugName: "Humira", Tier: 4, AnnualCost: decimal.NewFromInt(44000), MemberCopay: decimal.NewFromInt(1200)},
			{DrugName: "Amjevita", Tier: 2, AnnualCost: decimal.NewFromInt(30000), MemberCopay: decimal.NewFromInt(600), Biosimilar: true, ReferenceProduct: "Humira"},
			{DrugName: "Otezla", Tier: 1, AnnualCost: decimal.NewFromInt(22000), MemberCopay: decimal.NewFromInt(300)},
		},
	}
}

func TestLLMFailureFallsBackToRules(t *testing.T) {
	gen := NewGenerator(&fakeLLM{err: errors.New("upstream down")})

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineRules {
		t.Fatalf("expected rules engine, got %s", engine)
	}
	if len(recs) == 0 {
		t.Fatal("fallback must return at least one recommendation")
	}
}

func TestEmptyLLMReplyFallsBackToRules(t *testing.T) {
	gen := NewGenerator(&fakeLLM{reply: `{"recommendations":[]}`})

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineRules || len(recs) == 0 {
		t.Fatalf("expected non-empty rule-based set, got engine=%s count=%d", engine, len(recs))
	}
}

func TestMalformedLLMReplyFallsBackToRules(t *testing.T) {
	gen := NewGenerator(&fakeLLM{reply: "I think the patient should switch to something cheaper."})

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineRules || len(recs) == 0 {
		t.Fatalf("expected non-empty rule-based set, got engine=%s count=%d", engine, len(recs))
	}
}

func TestValidLLMReplyIsUsedWithLocalCosts(t *testing.T) {
	gen := NewGenerator(&fakeLLM{reply: "```json\n" + `{"recommendations":[
		{"type":"switch-to-biosimilar","target_drug":"Amjevita","rationale":"Biosimilar with equivalent efficacy."},
		{"type":"dose-reduction","target_drug":"","rationale":"Long stable interval supports spacing doses."}
	]}` + "\n```"})

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineLLM {
		t.Fatalf("expected llm engine, got %s", engine)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	first := recs[0]
	if first.Type != models.RecTypeSwitchBiosimilar || first.TargetDrugName != "Amjevita" {
		t.Fatalf("unexpected first recommendation: %+v", first)
	}
	if first.Costs == nil || !first.Costs.AnnualSavings.Equal(decimal.NewFromInt(14000)) {
		t.Fatalf("expected locally computed savings of 14000, got %+v", first.Costs)
	}
	if recs[0].Rank != 1 || recs[1].Rank != 2 {
		t.Fatalf("expected ranks 1..2, got %d and %d", recs[0].Rank, recs[1].Rank)
	}
}

func TestLLMTargetOutsidePlanIsRejected(t *testing.T) {
	gen := NewGenerator(&fakeLLM{reply: `{"recommendations":[
		{"type":"therapeutic-switch","target_drug":"MadeUpDrug","rationale":"Cheaper."}
	]}`})

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineRules || len(recs) == 0 {
		t.Fatalf("expected fallback after rejecting off-plan target, got engine=%s count=%d", engine, len(recs))
	}
}

func TestNoCurrentBiologicSignalsFailure(t *testing.T) {
	gen := NewGenerator(nil)
	in := testInput()
	in.CurrentDrugName = ""

	if _, _, err := gen.Generate(context.Background(), in); !errors.Is(err, ErrNoCurrentBiologic) {
		t.Fatalf("expected ErrNoCurrentBiologic, got %v", err)
	}
}

func TestRuleEngineRanksBySavings(t *testing.T) {
	gen := NewGenerator(nil)

	recs, engine, err := gen.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine != EngineRules {
		t.Fatalf("expected rules engine, got %s", engine)
	}
	if len(recs) > maxRecommendations {
		t.Fatalf("expected at most %d recommendations, got %d", maxRecommendations, len(recs))
	}
	for i := 1; i < len(recs); i++ {
		prev, prevOK := savingsOf(recs[i-1])
		cur, curOK := savingsOf(recs[i])
		if prevOK && curOK && cur.GreaterThan(prev) {
			t.Fatalf("recommendations not sorted by savings: %s before %s", prev, cur)
		}
	}
}

func TestOptimizeCurrentWhenNothingCheaper(t *testing.T) {
	gen := NewGenerator(nil)
	in := testInput()
	in.Triage = triage.Result{Stable: false, Quadrant: triage.QuadrantUnstableAligned}

	recs, _, err := gen.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Type != models.RecTypeOptimizeCurrent {
		t.Fatalf("expected a single optimize-current recommendation, got %+v", recs)
	}
	if recs[0].Costs != nil {
		t.Fatal("optimize-current must not carry a partial cost block")
	}
}
