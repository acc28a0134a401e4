package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KindEligibility = "eligibility"
	KindClaims      = "claims"
	KindFormulary   = "formulary"
	KindKnowledge   = "knowledge"
)

const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Batch is the audit record of one CSV upload.
type Batch struct {
	ID           uuid.UUID      `json:"id" gorm:"primaryKey;column:id"`
	Kind         string         `json:"kind" gorm:"column:kind;index"`
	FileName     string         `json:"file_name" gorm:"column:file_name"`
	TotalRows    int            `json:"total_rows" gorm:"column:total_rows"`
	AcceptedRows int            `json:"accepted_rows" gorm:"column:accepted_rows"`
	ErrorCount   int            `json:"error_count" gorm:"column:error_count"`
	Errors       datatypes.JSON `json:"errors,omitempty" gorm:"column:errors"`
	Status       string         `json:"status" gorm:"column:status"`
	CreatedAt    time.Time      `json:"created_at" gorm:"column:created_at"`
}

func (Batch) TableName() string {
	return "upload_batches"
}

func ValidKind(kind string) bool {
	switch kind {
	case KindEligibility, KindClaims, KindFormulary, KindKnowledge:
		return true
	}
	return false
}
