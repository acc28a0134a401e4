package formulary

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Drug is one formulary line: what a plan charges for a drug and whether it
// gates access behind prior authorization. Static reference data per plan.
type Drug struct {
	ID               uuid.UUID       `json:"id" gorm:"primaryKey;column:id"`
	PlanID           string          `json:"plan_id" gorm:"column:plan_id;index:idx_formulary_plan_drug,unique"`
	DrugName         string          `json:"drug_name" gorm:"column:drug_name;index:idx_formulary_plan_drug,unique"`
	Tier             int             `json:"tier" gorm:"column:tier"` // 1-5
	PriorAuth        bool            `json:"prior_auth" gorm:"column:prior_auth"`
	AnnualCost       decimal.Decimal `json:"annual_cost" gorm:"column:annual_cost;type:numeric(12,2)"`
	MemberCopay      decimal.Decimal `json:"member_copay" gorm:"column:member_copay;type:numeric(12,2)"`
	Biosimilar       bool            `json:"biosimilar" gorm:"column:biosimilar"`
	ReferenceProduct string          `json:"reference_product,omitempty" gorm:"column:reference_product"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Drug) TableName() string {
	return "formulary_drugs"
}
