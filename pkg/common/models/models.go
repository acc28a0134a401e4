package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // upload, assessment, knowledge-index
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// CSV ingestion
type RowError struct {
	Row     int    `json:"row"` // 1-based data row; 0 means the whole batch was rejected
	Message string `json:"message"`
}

type UploadSummary struct {
	BatchID      string     `json:"batch_id"`
	Kind         string     `json:"kind"` // eligibility, claims, formulary, knowledge
	FileName     string     `json:"file_name"`
	TotalRows    int        `json:"total_rows"`
	AcceptedRows int        `json:"accepted_rows"`
	Errors       []RowError `json:"errors,omitempty"`
	Status       string     `json:"status"` // completed, partial, failed
	Timestamp    time.Time  `json:"timestamp"`
}

// Patient cost designation values set on eligibility upload.
const (
	CostCategoryHigh = "HIGH_COST"
	CostCategoryLow  = "LOW_COST"
)

type PatientSummary struct {
	PatientID       uuid.UUID       `json:"patient_id"`
	MemberID        string          `json:"member_id"`
	ClaimCount      int             `json:"claim_count"`
	TotalMemberPaid decimal.Decimal `json:"total_member_paid"`
	TotalPlanPaid   decimal.Decimal `json:"total_plan_paid"`
	TotalDrugCost   decimal.Decimal `json:"total_drug_cost"`
	LatestFillDate  *time.Time      `json:"latest_fill_date,omitempty"`
	LatestDrugName  string          `json:"latest_drug_name,omitempty"`
}

// Assessment & recommendations
type AssessmentRequest struct {
	PatientID          uuid.UUID `json:"patient_id"`
	Diagnosis          string    `json:"diagnosis"`
	PsoriaticArthritis bool      `json:"psoriatic_arthritis"`
	DLQIScore          int       `json:"dlqi_score"`
	MonthsStable       int       `json:"months_stable"`
	CurrentDrugName    string    `json:"current_drug,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

const (
	RecTypeDoseReduction     = "dose-reduction"
	RecTypeSwitchBiosimilar  = "switch-to-biosimilar"
	RecTypeSwitchPreferred   = "switch-to-preferred"
	RecTypeTherapeuticSwitch = "therapeutic-switch"
	RecTypeOptimizeCurrent   = "optimize-current"
)

// CostProjection is written all-or-none: a recommendation either carries the
// full annual cost block or none of it.
type CostProjection struct {
	CurrentAnnualCost     decimal.Decimal  `json:"current_annual_cost"`
	RecommendedAnnualCost decimal.Decimal  `json:"recommended_annual_cost"`
	AnnualSavings         decimal.Decimal  `json:"annual_savings"`
	SavingsPercent        decimal.Decimal  `json:"savings_percent"`
	MonthlyOutOfPocket    *decimal.Decimal `json:"monthly_out_of_pocket,omitempty"`
}

type RecommendationCandidate struct {
	Rank           int             `json:"rank"`
	Type           string          `json:"type"`
	TargetDrugName string          `json:"target_drug,omitempty"`
	Rationale      string          `json:"rationale"`
	Costs          *CostProjection `json:"costs,omitempty"`
}

type Recommendation struct {
	ID             uuid.UUID       `json:"id"`
	AssessmentID   uuid.UUID       `json:"assessment_id"`
	PatientID      uuid.UUID       `json:"patient_id"`
	Rank           int             `json:"rank"`
	Type           string          `json:"type"`
	TargetDrugName string          `json:"target_drug,omitempty"`
	Rationale      string          `json:"rationale"`
	Costs          *CostProjection `json:"costs,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Assessment struct {
	ID                 uuid.UUID        `json:"id"`
	PatientID          uuid.UUID        `json:"patient_id"`
	Diagnosis          string           `json:"diagnosis"`
	PsoriaticArthritis bool             `json:"psoriatic_arthritis"`
	DLQIScore          int              `json:"dlqi_score"`
	MonthsStable       int              `json:"months_stable"`
	CurrentDrugName    string           `json:"current_drug,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	CanDoseReduce      bool             `json:"can_dose_reduce"`
	SwitchRecommended  bool             `json:"switch_recommended"`
	Quadrant           string           `json:"quadrant"`
	EngineUsed         string           `json:"engine_used"` // llm or rules
	Recommendations    []Recommendation `json:"recommendations,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Evidence retrieval
type EvidenceSnippet struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
