package ingest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseEligibility(t *testing.T) {
	csv := `Member ID,First Name,Last Name,DOB,Plan,Cost Category,Benchmark Cost
M100,Ana,Reyes,1988-04-12,PLAN-A,HIGH_COST,"$62,000.00"
M101,Ben,Okafor,07/03/1975,PLAN-A,,
`
	rows, rowErrs, total, err := ParseEligibility(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseEligibility: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(rows) != 2 || total != 2 {
		t.Fatalf("got %d rows / total %d, want 2 / 2", len(rows), total)
	}

	first := rows[0]
	if first.MemberID != "M100" || first.PlanID != "PLAN-A" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.CostCategory != "HIGH_COST" {
		t.Errorf("cost category = %s, want HIGH_COST", first.CostCategory)
	}
	if !first.BenchmarkAnnualCost.Equal(decimal.NewFromInt(62000)) {
		t.Errorf("benchmark = %s, want 62000", first.BenchmarkAnnualCost)
	}
	if first.DateOfBirth == nil || first.DateOfBirth.Year() != 1988 {
		t.Errorf("date of birth not parsed: %v", first.DateOfBirth)
	}

	second := rows[1]
	if second.CostCategory != "LOW_COST" {
		t.Errorf("empty category should default to LOW_COST, got %s", second.CostCategory)
	}
	if second.DateOfBirth == nil || second.DateOfBirth.Month() != 7 {
		t.Errorf("US-format date not parsed: %v", second.DateOfBirth)
	}
}

func TestParseClaimsBadRowsRecordedAndSkipped(t *testing.T) {
	csv := `member_id,fill_date,ndc,drug_name,member_paid,plan_paid,true_drug_cost
M100,2026-01-15,00074-4339-02,Humira,150.00,5000.00,5150.00
M101,not-a-date,00074-4339-02,Humira,150.00,5000.00,5150.00
,2026-02-01,00074-4339-02,Humira,,,
M102,2026-03-10,55513-0730-02,Taltz,90.00,abc,
`
	rows, rowErrs, total, err := ParseClaims(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("got %d accepted rows, want 1", len(rows))
	}
	if rows[0].MemberID != "M100" || rows[0].Line != 1 {
		t.Errorf("unexpected accepted row: %+v", rows[0])
	}

	if len(rowErrs) != 3 {
		t.Fatalf("got %d row errors, want 3: %v", len(rowErrs), rowErrs)
	}
	wantRows := []int{2, 3, 4}
	for i, re := range rowErrs {
		if re.Row != wantRows[i] {
			t.Errorf("error %d at row %d, want %d (%s)", i, re.Row, wantRows[i], re.Message)
		}
	}

	// The accepted + errored split always covers the whole batch.
	if len(rows)+len(rowErrs) != total {
		t.Errorf("accepted %d + errors %d != total %d", len(rows), len(rowErrs), total)
	}
}

func TestParseFormularyMissingRequiredColumn(t *testing.T) {
	csv := `Plan ID,Tier,Annual Cost
PLAN-A,2,48000
PLAN-A,1,12000
`
	rows, rowErrs, total, err := ParseFormulary(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseFormulary: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0 when the header is rejected", len(rows))
	}
	if len(rowErrs) != 1 {
		t.Fatalf("got %d errors, want exactly 1", len(rowErrs))
	}
	if rowErrs[0].Row != 0 {
		t.Errorf("error at row %d, want 0", rowErrs[0].Row)
	}
	if !strings.Contains(rowErrs[0].Message, "Drug Name") {
		t.Errorf("error should name the missing column: %s", rowErrs[0].Message)
	}
	// A rejected header still reports how many data rows the file held.
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestParseFormulary(t *testing.T) {
	csv := `plan_id,drug_name,tier,PA Required,annual_cost,member_copay,biosimilar,reference_product
PLAN-A,Humira,4,Yes,"$84,000",3600,N,
PLAN-A,Amjevita,2,no,44000,1200,Y,Humira
PLAN-A,Skyrizi,6,no,90000,2000,N,
`
	rows, rowErrs, total, err := ParseFormulary(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseFormulary: %v", err)
	}
	if len(rows) != 2 || total != 3 {
		t.Fatalf("got %d rows / total %d, want 2 / 3", len(rows), total)
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 3 {
		t.Fatalf("tier 6 should be rejected at row 3, got %v", rowErrs)
	}

	humira := rows[0]
	if humira.Tier != 4 || !humira.PriorAuth || humira.Biosimilar {
		t.Errorf("unexpected Humira row: %+v", humira)
	}
	if !humira.AnnualCost.Equal(decimal.NewFromInt(84000)) {
		t.Errorf("annual cost = %s, want 84000", humira.AnnualCost)
	}

	amjevita := rows[1]
	if !amjevita.Biosimilar || amjevita.ReferenceProduct != "Humira" {
		t.Errorf("unexpected Amjevita row: %+v", amjevita)
	}
}

func TestParseKnowledge(t *testing.T) {
	csv := `Title,Content,Source
Dose tapering in stable psoriasis,Interval extension preserved response in most patients.,J Derm 2024
,missing title,
`
	rows, rowErrs, total, err := ParseKnowledge(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseKnowledge: %v", err)
	}
	if len(rows) != 1 || len(rowErrs) != 1 || total != 2 {
		t.Fatalf("got %d rows / %d errors / total %d, want 1 / 1 / 2", len(rows), len(rowErrs), total)
	}
	if rowErrs[0].Row != 2 {
		t.Errorf("error at row %d, want 2", rowErrs[0].Row)
	}
}

func TestParseEmptyFileRejected(t *testing.T) {
	_, _, _, err := ParseClaims(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected an error for an empty file")
	}
	if !IsValidationError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestParseMoney(t *testing.T) {
	got, err := parseMoney("$1,234.50")
	if err != nil {
		t.Fatalf("parseMoney: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(1234.5)) {
		t.Errorf("parseMoney = %s, want 1234.5", got)
	}

	if _, err := parseMoney("twelve"); err == nil {
		t.Error("expected an error for non-numeric input")
	}
}
