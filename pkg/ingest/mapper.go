package ingest

import (
	"fmt"
	"strings"

	"github.com/dermacost-ai/platform/pkg/common/models"
)

// fieldSpec names one canonical CSV field and the header spellings that map
// to it. Aliases are stored pre-normalized.
type fieldSpec struct {
	name     string
	display  string // header name used in error messages
	required bool
	aliases  []string
}

// ColumnMap resolves canonical field names to column indexes for one batch.
type ColumnMap map[string]int

// normalizeHeader makes matching insensitive to case, whitespace and the
// usual separator characters, so "Member ID", "member_id" and "MemberID"
// all land on the same key.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF") // UTF-8 BOM on the first header
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		switch r {
		case ' ', '\t', '_', '-', '.', '#':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mapColumns matches a header row against the field specs. A missing
// required column rejects the whole batch with a row-0 error.
func mapColumns(header []string, fields []fieldSpec) (ColumnMap, *models.RowError) {
	byAlias := make(map[string]string)
	for _, f := range fields {
		byAlias[normalizeHeader(f.name)] = f.name
		for _, a := range f.aliases {
			byAlias[a] = f.name
		}
	}

	cols := make(ColumnMap)
	for idx, raw := range header {
		key := normalizeHeader(raw)
		if field, ok := byAlias[key]; ok {
			if _, taken := cols[field]; !taken {
				cols[field] = idx
			}
		}
	}

	for _, f := range fields {
		if !f.required {
			continue
		}
		if _, ok := cols[f.name]; !ok {
			return nil, &models.RowError{
				Row:     0,
				Message: fmt.Sprintf("missing required column %q", f.display),
			}
		}
	}

	return cols, nil
}

// Get returns the trimmed cell for a canonical field, or "" when the column
// is absent or the row is short.
func (m ColumnMap) Get(row []string, field string) string {
	idx, ok := m[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var eligibilityFields = []fieldSpec{
	{name: "member_id", display: "Member ID", required: true,
		aliases: []string{"memberid", "membernumber", "subscriberid", "patientid", "memberno"}},
	{name: "first_name", display: "First Name",
		aliases: []string{"firstname", "givenname", "fname"}},
	{name: "last_name", display: "Last Name",
		aliases: []string{"lastname", "surname", "familyname", "lname"}},
	{name: "date_of_birth", display: "Date of Birth",
		aliases: []string{"dateofbirth", "dob", "birthdate", "birthday"}},
	{name: "plan_id", display: "Plan ID",
		aliases: []string{"planid", "plan", "groupid", "groupnumber"}},
	{name: "cost_category", display: "Cost Category",
		aliases: []string{"costcategory", "costdesignation", "designation", "costgroup"}},
	{name: "benchmark_cost", display: "Benchmark Annual Cost",
		aliases: []string{"benchmarkannualcost", "benchmarkcost", "benchmark", "annualbenchmark"}},
}

var claimsFields = []fieldSpec{
	{name: "member_id", display: "Member ID", required: true,
		aliases: []string{"memberid", "membernumber", "subscriberid", "patientid"}},
	{name: "fill_date", display: "Fill Date", required: true,
		aliases: []string{"filldate", "datefilled", "servicedate", "dateofservice", "dateoffill"}},
	{name: "ndc", display: "NDC", required: true,
		aliases: []string{"ndc", "ndccode", "drugcode", "nationaldrugcode"}},
	{name: "drug_name", display: "Drug Name",
		aliases: []string{"drugname", "drug", "medication", "productname"}},
	{name: "member_paid", display: "Member Paid",
		aliases: []string{"memberpaid", "membercost", "patientpaid", "outofpocket", "oop"}},
	{name: "plan_paid", display: "Plan Paid",
		aliases: []string{"planpaid", "plancost", "paidamount", "payerpaid"}},
	{name: "true_drug_cost", display: "True Drug Cost",
		aliases: []string{"truedrugcost", "truecost", "totalcost", "drugcost", "awp"}},
	{name: "diagnosis_code", display: "Diagnosis Code",
		aliases: []string{"diagnosiscode", "diagnosis", "dx", "dxcode", "icd10"}},
}

var formularyFields = []fieldSpec{
	{name: "plan_id", display: "Plan ID", required: true,
		aliases: []string{"planid", "plan", "groupid"}},
	{name: "drug_name", display: "Drug Name", required: true,
		aliases: []string{"drugname", "drug", "medication", "productname"}},
	{name: "tier", display: "Tier", required: true,
		aliases: []string{"tier", "formularytier", "costtier"}},
	{name: "prior_auth", display: "PA Required",
		aliases: []string{"parequired", "priorauth", "priorauthorization", "pa"}},
	{name: "annual_cost", display: "Annual Cost",
		aliases: []string{"annualcost", "yearlycost", "annualdrugcost"}},
	{name: "member_copay", display: "Member Copay",
		aliases: []string{"membercopay", "copay", "memberoop"}},
	{name: "biosimilar", display: "Biosimilar",
		aliases: []string{"biosimilar", "isbiosimilar"}},
	{name: "reference_product", display: "Reference Product",
		aliases: []string{"referenceproduct", "reference", "referencedrug"}},
}

var knowledgeFields = []fieldSpec{
	{name: "title", display: "Title", required: true,
		aliases: []string{"title", "name", "heading"}},
	{name: "content", display: "Content", required: true,
		aliases: []string{"content", "text", "body"}},
	{name: "source", display: "Source",
		aliases: []string{"source", "origin", "url"}},
}
