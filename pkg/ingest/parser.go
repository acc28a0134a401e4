package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/shopspring/decimal"
)

// ValidationError marks batch-level input problems the caller should surface
// as a bad request rather than a server failure.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type EligibilityRow struct {
	Line                int // 1-based position in the uploaded file
	MemberID            string
	FirstName           string
	LastName            string
	DateOfBirth         *time.Time
	PlanID              string
	CostCategory        string
	BenchmarkAnnualCost decimal.Decimal
}

type ClaimRow struct {
	Line          int
	MemberID      string
	FillDate      time.Time
	NDC           string
	DrugName      string
	MemberPaid    decimal.Decimal
	PlanPaid      decimal.Decimal
	TrueDrugCost  decimal.Decimal
	DiagnosisCode string
}

type FormularyRow struct {
	PlanID           string
	DrugName         string
	Tier             int
	PriorAuth        bool
	AnnualCost       decimal.Decimal
	MemberCopay      decimal.Decimal
	Biosimilar       bool
	ReferenceProduct string
}

type KnowledgeRow struct {
	Title   string
	Content string
	Source  string
}

// readBatch pulls the header and data rows out of a CSV stream. Any reader
// failure is a ValidationError: the file itself is bad, not the server. On a
// rejected header the data rows are still returned so callers can report how
// large the rejected batch was.
func readBatch(r io.Reader, fields []fieldSpec) (ColumnMap, [][]string, []models.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, nil, ValidationError{reason: fmt.Errorf("unreadable csv: %w", err)}
	}
	if len(records) == 0 {
		return nil, nil, nil, ValidationError{reason: errors.New("empty file: no header row")}
	}

	cols, rowErr := mapColumns(records[0], fields)
	if rowErr != nil {
		return nil, records[1:], []models.RowError{*rowErr}, nil
	}

	return cols, records[1:], nil, nil
}

// Each row parses independently: a malformed row is recorded with its
// 1-based number and excluded without aborting the batch. The int return is
// the number of data rows in the file, whether or not they parsed.

func ParseEligibility(r io.Reader) ([]EligibilityRow, []models.RowError, int, error) {
	cols, records, rowErrs, err := readBatch(r, eligibilityFields)
	if err != nil || rowErrs != nil {
		return nil, rowErrs, len(records), err
	}

	var rows []EligibilityRow
	for i, record := range records {
		rowNum := i + 1

		row := EligibilityRow{
			Line:      rowNum,
			MemberID:  cols.Get(record, "member_id"),
			FirstName: cols.Get(record, "first_name"),
			LastName:  cols.Get(record, "last_name"),
			PlanID:    cols.Get(record, "plan_id"),
		}
		if row.MemberID == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "member id is empty"})
			continue
		}

		if raw := cols.Get(record, "date_of_birth"); raw != "" {
			dob, err := parseDate(raw)
			if err != nil {
				rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid date of birth %q", raw)})
				continue
			}
			row.DateOfBirth = &dob
		}

		category, err := parseCostCategory(cols.Get(record, "cost_category"))
		if err != nil {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		row.CostCategory = category

		if raw := cols.Get(record, "benchmark_cost"); raw != "" {
			benchmark, err := parseMoney(raw)
			if err != nil {
				rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid benchmark cost %q", raw)})
				continue
			}
			row.BenchmarkAnnualCost = benchmark
		}

		rows = append(rows, row)
	}

	return rows, rowErrs, len(records), nil
}

func ParseClaims(r io.Reader) ([]ClaimRow, []models.RowError, int, error) {
	cols, records, rowErrs, err := readBatch(r, claimsFields)
	if err != nil || rowErrs != nil {
		return nil, rowErrs, len(records), err
	}

	var rows []ClaimRow
	for i, record := range records {
		rowNum := i + 1

		row := ClaimRow{
			Line:          rowNum,
			MemberID:      cols.Get(record, "member_id"),
			NDC:           cols.Get(record, "ndc"),
			DrugName:      cols.Get(record, "drug_name"),
			DiagnosisCode: cols.Get(record, "diagnosis_code"),
		}
		if row.MemberID == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "member id is empty"})
			continue
		}
		if row.NDC == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "ndc is empty"})
			continue
		}

		fillDate, err := parseDate(cols.Get(record, "fill_date"))
		if err != nil {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid fill date %q", cols.Get(record, "fill_date"))})
			continue
		}
		row.FillDate = fillDate

		bad := false
		for _, m := range []struct {
			field string
			dst   *decimal.Decimal
		}{
			{"member_paid", &row.MemberPaid},
			{"plan_paid", &row.PlanPaid},
			{"true_drug_cost", &row.TrueDrugCost},
		} {
			raw := cols.Get(record, m.field)
			if raw == "" {
				continue
			}
			value, err := parseMoney(raw)
			if err != nil {
				rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid %s %q", strings.ReplaceAll(m.field, "_", " "), raw)})
				bad = true
				break
			}
			*m.dst = value
		}
		if bad {
			continue
		}

		rows = append(rows, row)
	}

	return rows, rowErrs, len(records), nil
}

func ParseFormulary(r io.Reader) ([]FormularyRow, []models.RowError, int, error) {
	cols, records, rowErrs, err := readBatch(r, formularyFields)
	if err != nil || rowErrs != nil {
		return nil, rowErrs, len(records), err
	}

	var rows []FormularyRow
	for i, record := range records {
		rowNum := i + 1

		row := FormularyRow{
			PlanID:           cols.Get(record, "plan_id"),
			DrugName:         cols.Get(record, "drug_name"),
			ReferenceProduct: cols.Get(record, "reference_product"),
		}
		if row.PlanID == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "plan id is empty"})
			continue
		}
		if row.DrugName == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "drug name is empty"})
			continue
		}

		tier, err := strconv.Atoi(cols.Get(record, "tier"))
		if err != nil || tier < 1 || tier > 5 {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid tier %q (expected 1-5)", cols.Get(record, "tier"))})
			continue
		}
		row.Tier = tier

		row.PriorAuth = parseBool(cols.Get(record, "prior_auth"))
		row.Biosimilar = parseBool(cols.Get(record, "biosimilar"))

		if raw := cols.Get(record, "annual_cost"); raw != "" {
			cost, err := parseMoney(raw)
			if err != nil {
				rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid annual cost %q", raw)})
				continue
			}
			row.AnnualCost = cost
		}
		if raw := cols.Get(record, "member_copay"); raw != "" {
			copay, err := parseMoney(raw)
			if err != nil {
				rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: fmt.Sprintf("invalid member copay %q", raw)})
				continue
			}
			row.MemberCopay = copay
		}

		rows = append(rows, row)
	}

	return rows, rowErrs, len(records), nil
}

func ParseKnowledge(r io.Reader) ([]KnowledgeRow, []models.RowError, int, error) {
	cols, records, rowErrs, err := readBatch(r, knowledgeFields)
	if err != nil || rowErrs != nil {
		return nil, rowErrs, len(records), err
	}

	var rows []KnowledgeRow
	for i, record := range records {
		rowNum := i + 1

		row := KnowledgeRow{
			Title:   cols.Get(record, "title"),
			Content: cols.Get(record, "content"),
			Source:  cols.Get(record, "source"),
		}
		if row.Title == "" || row.Content == "" {
			rowErrs = append(rowErrs, models.RowError{Row: rowNum, Message: "title and content are required"})
			continue
		}

		rows = append(rows, row)
	}

	return rows, rowErrs, len(records), nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02"}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	return decimal.NewFromString(cleaned)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1", "t":
		return true
	}
	return false
}

func parseCostCategory(raw string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return models.CostCategoryLow, nil
	case models.CostCategoryHigh, "HIGH":
		return models.CostCategoryHigh, nil
	case models.CostCategoryLow, "LOW":
		return models.CostCategoryLow, nil
	}
	return "", fmt.Errorf("invalid cost category %q", raw)
}
