package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Patient{}, &PharmacyClaim{})
}

// UpsertByMemberID keys patients on the external member identifier; later
// eligibility uploads overwrite demographics and cost designation.
func (r *Repository) UpsertByMemberID(ctx context.Context, patient *Patient) error {
	patient.MemberID = strings.TrimSpace(patient.MemberID)

	var existing Patient
	result := r.db.WithContext(ctx).Where("member_id = ?", patient.MemberID).First(&existing)

	now := time.Now().UTC()
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		patient.ID = uuid.New()
		patient.CreatedAt = now
		patient.UpdatedAt = now
		return r.db.WithContext(ctx).Create(patient).Error
	}
	if result.Error != nil {
		return result.Error
	}

	patient.ID = existing.ID
	patient.CreatedAt = existing.CreatedAt
	patient.UpdatedAt = now
	return r.db.WithContext(ctx).Save(patient).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var patient Patient
	result := r.db.WithContext(ctx).First(&patient, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &patient, result.Error
}

func (r *Repository) GetByMemberID(ctx context.Context, memberID string) (*Patient, error) {
	var patient Patient
	result := r.db.WithContext(ctx).Where("member_id = ?", strings.TrimSpace(memberID)).First(&patient)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &patient, result.Error
}

func (r *Repository) CreateClaim(ctx context.Context, claim *PharmacyClaim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	claim.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(claim).Error
}

// LatestClaim returns the most recent fill, used to infer the current
// biologic when the assessment does not name one.
func (r *Repository) LatestClaim(ctx context.Context, patientID uuid.UUID) (*PharmacyClaim, error) {
	var claim PharmacyClaim
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("fill_date desc").
		First(&claim)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &claim, result.Error
}

// AnnualDrugCost sums the true drug cost of a drug's fills over the trailing
// twelve months. Fallback pricing source when the formulary has no entry.
func (r *Repository) AnnualDrugCost(ctx context.Context, patientID uuid.UUID, drugName string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(true_drug_cost), 0) AS total
			 FROM pharmacy_claims
			 WHERE patient_id = ? AND lower(drug_name) = lower(?) AND fill_date >= ?`,
			patientID, strings.TrimSpace(drugName), time.Now().UTC().AddDate(-1, 0, 0)).
		Scan(&row).Error
	return row.Total, err
}

// CostSummary aggregates a patient's claim history.
func (r *Repository) CostSummary(ctx context.Context, patientID uuid.UUID) (*models.PatientSummary, error) {
	patient, err := r.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var agg struct {
		ClaimCount      int
		TotalMemberPaid decimal.Decimal
		TotalPlanPaid   decimal.Decimal
		TotalDrugCost   decimal.Decimal
		LatestFillDate  *time.Time
	}
	err = r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) AS claim_count,
				COALESCE(SUM(member_paid), 0) AS total_member_paid,
				COALESCE(SUM(plan_paid), 0) AS total_plan_paid,
				COALESCE(SUM(true_drug_cost), 0) AS total_drug_cost,
				MAX(fill_date) AS latest_fill_date
			 FROM pharmacy_claims WHERE patient_id = ?`, patientID).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	summary := &models.PatientSummary{
		PatientID:       patient.ID,
		MemberID:        patient.MemberID,
		ClaimCount:      agg.ClaimCount,
		TotalMemberPaid: agg.TotalMemberPaid,
		TotalPlanPaid:   agg.TotalPlanPaid,
		TotalDrugCost:   agg.TotalDrugCost,
		LatestFillDate:  agg.LatestFillDate,
	}

	if latest, err := r.LatestClaim(ctx, patientID); err == nil {
		summary.LatestDrugName = latest.DrugName
	}

	return summary, nil
}

func (r *Repository) ListClaims(ctx context.Context, limit int) ([]PharmacyClaim, error) {
	var claims []PharmacyClaim
	err := r.db.WithContext(ctx).Order("fill_date desc").Limit(limit).Find(&claims).Error
	return claims, err
}

func (r *Repository) DeleteAllClaims(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&PharmacyClaim{})
	return result.RowsAffected, result.Error
}
