package formulary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("formulary drug not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Drug{})
}

// Upsert keys on (plan, drug name); later formulary uploads replace earlier
// pricing for the same line.
func (r *Repository) Upsert(ctx context.Context, drug *Drug) error {
	drug.DrugName = strings.TrimSpace(drug.DrugName)

	var existing Drug
	result := r.db.WithContext(ctx).
		Where("plan_id = ? AND lower(drug_name) = lower(?)", drug.PlanID, drug.DrugName).
		First(&existing)

	now := time.Now().UTC()
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		drug.ID = uuid.New()
		drug.CreatedAt = now
		drug.UpdatedAt = now
		return r.db.WithContext(ctx).Create(drug).Error
	}
	if result.Error != nil {
		return result.Error
	}

	drug.ID = existing.ID
	drug.CreatedAt = existing.CreatedAt
	drug.UpdatedAt = now
	return r.db.WithContext(ctx).Save(drug).Error
}

func (r *Repository) FindByPlanAndDrug(ctx context.Context, planID, drugName string) (*Drug, error) {
	var drug Drug
	result := r.db.WithContext(ctx).
		Where("plan_id = ? AND lower(drug_name) = lower(?)", planID, strings.TrimSpace(drugName)).
		First(&drug)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &drug, result.Error
}

// ListByPlan returns the candidate inventory for recommendation generation,
// cheapest first.
func (r *Repository) ListByPlan(ctx context.Context, planID string) ([]Drug, error) {
	var drugs []Drug
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("annual_cost asc").
		Find(&drugs).Error
	return drugs, err
}

func (r *Repository) List(ctx context.Context, limit int) ([]Drug, error) {
	var drugs []Drug
	err := r.db.WithContext(ctx).Order("plan_id, drug_name").Limit(limit).Find(&drugs).Error
	return drugs, err
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&Drug{})
	return result.RowsAffected, result.Error
}
