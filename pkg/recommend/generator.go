package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/triage"
	"github.com/shopspring/decimal"
)

// ErrNoCurrentBiologic signals that no recommendation can be made because
// the patient has no current biologic on file. Callers must surface this
// rather than treat it as an empty result.
var ErrNoCurrentBiologic = errors.New("patient has no current biologic on file")

const (
	EngineLLM   = "llm"
	EngineRules = "rules"

	maxRecommendations = 3
)

// LLMClient is the completion boundary. The reply is treated as an untrusted,
// possibly malformed collaborator.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Input carries everything the generator needs; it holds no state of its own.
type Input struct {
	Diagnosis          string
	PsoriaticArthritis bool
	Triage             triage.Result
	CurrentDrugName    string
	CurrentAnnualCost  decimal.Decimal // zero when unknown
	CurrentCopay       decimal.Decimal
	Candidates         []formulary.Drug
	Evidence           []models.EvidenceSnippet
}

type Generator struct {
	llm LLMClient
}

func NewGenerator(llm LLMClient) *Generator {
	return &Generator{llm: llm}
}

// Generate produces up to three ranked recommendations. The LLM path is
// tried first; any error, malformed reply, or empty set falls through to the
// deterministic rule engine. The engine actually used is returned so it can
// be recorded on the assessment.
func (g *Generator) Generate(ctx context.Context, in Input) ([]models.RecommendationCandidate, string, error) {
	if strings.TrimSpace(in.CurrentDrugName) == "" {
		return nil, "", ErrNoCurrentBiologic
	}

	if g.llm != nil {
		recs, err := g.fromLLM(ctx, in)
		if err == nil && len(recs) > 0 {
			return recs, EngineLLM, nil
		}
		if err != nil {
			logger.Log.WithError(err).Warn("llm recommendation path failed, using rule engine")
		}
	}

	return g.fromRules(in), EngineRules, nil
}

type llmReply struct {
	Recommendations []struct {
		Type       string `json:"type"`
		TargetDrug string `json:"target_drug"`
		Rationale  string `json:"rationale"`
	} `json:"recommendations"`
}

func (g *Generator) fromLLM(ctx context.Context, in Input) ([]models.RecommendationCandidate, error) {
	reply, err := g.llm.Complete(ctx, buildPrompt(in))
	if err != nil {
		return nil, err
	}

	var parsed llmReply
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil {
		return nil, fmt.Errorf("malformed llm reply: %w", err)
	}
	if len(parsed.Recommendations) == 0 {
		return nil, fmt.Errorf("llm returned an empty recommendation set")
	}

	var recs []models.RecommendationCandidate
	for _, raw := range parsed.Recommendations {
		if len(recs) == maxRecommendations {
			break
		}
		rec, ok := g.validate(in, raw.Type, raw.TargetDrug, raw.Rationale)
		if !ok {
			logger.Log.WithFields(map[string]interface{}{
				"type":        raw.Type,
				"target_drug": raw.TargetDrug,
			}).Warn("dropping invalid llm recommendation")
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no valid recommendations in llm reply")
	}

	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs, nil
}

// validate rejects unknown types and switch targets the plan does not carry.
// Cost figures are always computed locally from formulary pricing, never
// taken from the LLM.
func (g *Generator) validate(in Input, recType, targetDrug, rationale string) (models.RecommendationCandidate, bool) {
	recType = strings.TrimSpace(strings.ToLower(recType))
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return models.RecommendationCandidate{}, false
	}

	switch recType {
	case models.RecTypeDoseReduction:
		if !in.Triage.CanDoseReduce {
			return models.RecommendationCandidate{}, false
		}
		return models.RecommendationCandidate{
			Type:      recType,
			Rationale: rationale,
			Costs:     DoseReductionCosts(in.CurrentAnnualCost, in.CurrentCopay),
		}, true

	case models.RecTypeSwitchBiosimilar, models.RecTypeSwitchPreferred, models.RecTypeTherapeuticSwitch:
		target := findCandidate(in.Candidates, targetDrug)
		if target == nil || strings.EqualFold(target.DrugName, in.CurrentDrugName) {
			return models.RecommendationCandidate{}, false
		}
		copay := target.MemberCopay
		return models.RecommendationCandidate{
			Type:           recType,
			TargetDrugName: target.DrugName,
			Rationale:      rationale,
			Costs:          SwitchCosts(in.CurrentAnnualCost, target.AnnualCost, in.CurrentCopay, &copay),
		}, true

	case models.RecTypeOptimizeCurrent:
		return models.RecommendationCandidate{
			Type:      recType,
			Rationale: rationale,
		}, true
	}

	return models.RecommendationCandidate{}, false
}

func findCandidate(candidates []formulary.Drug, name string) *formulary.Drug {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range candidates {
		if strings.EqualFold(candidates[i].DrugName, name) {
			return &candidates[i]
		}
	}
	return nil
}

// stripCodeFence unwraps replies the model insists on fencing.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
