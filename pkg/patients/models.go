package patients

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Patient is created on eligibility upload and mutated by later uploads;
// the cost designation comes from the payer feed, never derived here.
type Patient struct {
	ID                  uuid.UUID       `json:"id" gorm:"primaryKey;column:id"`
	MemberID            string          `json:"member_id" gorm:"column:member_id;uniqueIndex"`
	FirstName           string          `json:"first_name" gorm:"column:first_name"`
	LastName            string          `json:"last_name" gorm:"column:last_name"`
	DateOfBirth         *time.Time      `json:"date_of_birth,omitempty" gorm:"column:date_of_birth"`
	PlanID              string          `json:"plan_id" gorm:"column:plan_id;index"`
	CostCategory        string          `json:"cost_category" gorm:"column:cost_category"` // HIGH_COST or LOW_COST
	BenchmarkAnnualCost decimal.Decimal `json:"benchmark_annual_cost" gorm:"column:benchmark_annual_cost;type:numeric(12,2)"`
	CreatedAt           time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt           time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// PharmacyClaim is immutable once created except for admin deletion.
type PharmacyClaim struct {
	ID            uuid.UUID       `json:"id" gorm:"primaryKey;column:id"`
	PatientID     uuid.UUID       `json:"patient_id" gorm:"column:patient_id;index"`
	MemberID      string          `json:"member_id" gorm:"column:member_id;index"`
	FillDate      time.Time       `json:"fill_date" gorm:"column:fill_date"`
	NDC           string          `json:"ndc" gorm:"column:ndc"`
	DrugName      string          `json:"drug_name" gorm:"column:drug_name"`
	MemberPaid    decimal.Decimal `json:"member_paid" gorm:"column:member_paid;type:numeric(12,2)"`
	PlanPaid      decimal.Decimal `json:"plan_paid" gorm:"column:plan_paid;type:numeric(12,2)"`
	TrueDrugCost  decimal.Decimal `json:"true_drug_cost" gorm:"column:true_drug_cost;type:numeric(12,2)"`
	DiagnosisCode string          `json:"diagnosis_code,omitempty" gorm:"column:diagnosis_code"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (PharmacyClaim) TableName() string {
	return "pharmacy_claims"
}
