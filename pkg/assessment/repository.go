package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dermacost-ai/platform/pkg/common/models"
)

var ErrNotFound = errors.New("assessment not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type assessmentModel struct {
	ID                 uuid.UUID `gorm:"primaryKey;column:id"`
	PatientID          uuid.UUID `gorm:"column:patient_id;index"`
	Diagnosis          string    `gorm:"column:diagnosis"`
	PsoriaticArthritis bool      `gorm:"column:psoriatic_arthritis"`
	DLQIScore          int       `gorm:"column:dlqi_score"`
	MonthsStable       int       `gorm:"column:months_stable"`
	CurrentDrugName    string    `gorm:"column:current_drug_name"`
	Notes              string    `gorm:"column:notes"`
	CanDoseReduce      bool      `gorm:"column:can_dose_reduce"`
	SwitchRecommended  bool      `gorm:"column:switch_recommended"`
	Quadrant           string    `gorm:"column:quadrant"`
	EngineUsed         string    `gorm:"column:engine_used"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (assessmentModel) TableName() string { return "assessments" }

type recommendationModel struct {
	ID             uuid.UUID      `gorm:"primaryKey;column:id"`
	AssessmentID   uuid.UUID      `gorm:"column:assessment_id;index"`
	PatientID      uuid.UUID      `gorm:"column:patient_id;index"`
	Rank           int            `gorm:"column:rank"`
	Type           string         `gorm:"column:type"`
	TargetDrugName string         `gorm:"column:target_drug_name"`
	Rationale      string         `gorm:"column:rationale"`
	Costs          datatypes.JSON `gorm:"column:costs"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
}

func (recommendationModel) TableName() string { return "recommendations" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&assessmentModel{}, &recommendationModel{})
}

func (r *Repository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()

	row := &assessmentModel{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		Diagnosis:          a.Diagnosis,
		PsoriaticArthritis: a.PsoriaticArthritis,
		DLQIScore:          a.DLQIScore,
		MonthsStable:       a.MonthsStable,
		CurrentDrugName:    a.CurrentDrugName,
		Notes:              a.Notes,
		CanDoseReduce:      a.CanDoseReduce,
		SwitchRecommended:  a.SwitchRecommended,
		Quadrant:           a.Quadrant,
		EngineUsed:         a.EngineUsed,
		CreatedAt:          a.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SaveRecommendation persists one ranked recommendation. The assessment is
// already committed by the time this runs, so a failure here loses a single
// recommendation, never the assessment.
func (r *Repository) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()

	row := &recommendationModel{
		ID:             rec.ID,
		AssessmentID:   rec.AssessmentID,
		PatientID:      rec.PatientID,
		Rank:           rec.Rank,
		Type:           rec.Type,
		TargetDrugName: rec.TargetDrugName,
		Rationale:      rec.Rationale,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.Costs != nil {
		if data, err := json.Marshal(rec.Costs); err == nil {
			row.Costs = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	var row assessmentModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}

	assessment := buildAssessment(&row)

	var recs []recommendationModel
	if err := r.db.WithContext(ctx).
		Where("assessment_id = ?", id).
		Order(`"rank"`).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	for i := range recs {
		assessment.Recommendations = append(assessment.Recommendations, buildRecommendation(&recs[i]))
	}

	return assessment, nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Assessment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []assessmentModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	assessments := make([]models.Assessment, 0, len(rows))
	for i := range rows {
		assessments = append(assessments, *buildAssessment(&rows[i]))
	}
	return assessments, nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&recommendationModel{}).Error; err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&assessmentModel{})
	return result.RowsAffected, result.Error
}

func buildAssessment(row *assessmentModel) *models.Assessment {
	return &models.Assessment{
		ID:                 row.ID,
		PatientID:          row.PatientID,
		Diagnosis:          row.Diagnosis,
		PsoriaticArthritis: row.PsoriaticArthritis,
		DLQIScore:          row.DLQIScore,
		MonthsStable:       row.MonthsStable,
		CurrentDrugName:    row.CurrentDrugName,
		Notes:              row.Notes,
		CanDoseReduce:      row.CanDoseReduce,
		SwitchRecommended:  row.SwitchRecommended,
		Quadrant:           row.Quadrant,
		EngineUsed:         row.EngineUsed,
		CreatedAt:          row.CreatedAt,
	}
}

func buildRecommendation(row *recommendationModel) models.Recommendation {
	rec := models.Recommendation{
		ID:             row.ID,
		AssessmentID:   row.AssessmentID,
		PatientID:      row.PatientID,
		Rank:           row.Rank,
		Type:           row.Type,
		TargetDrugName: row.TargetDrugName,
		Rationale:      row.Rationale,
		CreatedAt:      row.CreatedAt,
	}
	if len(row.Costs) > 0 {
		var costs models.CostProjection
		if err := json.Unmarshal(row.Costs, &costs); err == nil {
			rec.Costs = &costs
		}
	}
	return rec
}
