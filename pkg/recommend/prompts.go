package recommend

import (
	"fmt"
	"strings"
)

// buildPrompt renders the structured prompt for the LLM path. The reply must
// be strict JSON; anything else is discarded by the caller.
func buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are a pharmacy cost-optimization assistant for dermatology biologics.\n")
	b.WriteString("Propose 1-3 cost-saving actions for the patient below.\n\n")

	fmt.Fprintf(&b, "Diagnosis: %s\n", in.Diagnosis)
	fmt.Fprintf(&b, "Psoriatic arthritis: %t\n", in.PsoriaticArthritis)
	fmt.Fprintf(&b, "Current biologic: %s\n", in.CurrentDrugName)
	if in.CurrentAnnualCost.IsPositive() {
		fmt.Fprintf(&b, "Current annual drug cost: $%s\n", in.CurrentAnnualCost.StringFixed(2))
	}
	fmt.Fprintf(&b, "Stability: stable=%t, dose reduction allowed=%t, switch recommended=%t, quadrant=%s\n\n",
		in.Triage.Stable, in.Triage.CanDoseReduce, in.Triage.SwitchRecommended, in.Triage.Quadrant)

	b.WriteString("Formulary alternatives on this patient's plan:\n")
	for _, cand := range in.Candidates {
		if strings.EqualFold(cand.DrugName, in.CurrentDrugName) {
			continue
		}
		fmt.Fprintf(&b, "- %s: tier %d, prior auth %t, annual cost $%s, biosimilar=%t",
			cand.DrugName, cand.Tier, cand.PriorAuth, cand.AnnualCost.StringFixed(2), cand.Biosimilar)
		if cand.ReferenceProduct != "" {
			fmt.Fprintf(&b, " (reference: %s)", cand.ReferenceProduct)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(in.Evidence) > 0 {
		b.WriteString("Supporting evidence:\n")
		for _, ev := range in.Evidence {
			fmt.Fprintf(&b, "- %s: %s\n", ev.Title, ev.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Reply with strict JSON only, no prose, in this shape:
{"recommendations":[{"type":"dose-reduction|switch-to-biosimilar|switch-to-preferred|therapeutic-switch|optimize-current","target_drug":"<name from the alternatives list, empty for dose-reduction and optimize-current>","rationale":"<one or two sentences>"}]}
Rules: at most 3 entries, ordered best first. Only propose dose-reduction when it is allowed above. Only name drugs from the alternatives list. Do not include cost numbers; they are computed separately.`)

	return b.String()
}
