package assessment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermacost-ai/platform/pkg/common/kafka"
	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/patients"
	"github.com/dermacost-ai/platform/pkg/recommend"
	"github.com/dermacost-ai/platform/pkg/triage"
)

// PatientStore is the slice of the patient repository the service needs.
type PatientStore interface {
	Get(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
	LatestClaim(ctx context.Context, patientID uuid.UUID) (*patients.PharmacyClaim, error)
	AnnualDrugCost(ctx context.Context, patientID uuid.UUID, drugName string) (decimal.Decimal, error)
}

type FormularyStore interface {
	FindByPlanAndDrug(ctx context.Context, planID, drugName string) (*formulary.Drug, error)
	ListByPlan(ctx context.Context, planID string) ([]formulary.Drug, error)
}

// EvidenceSearcher fans retrieval queries out and returns results in query
// order; a failed query comes back as a nil slice.
type EvidenceSearcher interface {
	SearchAll(ctx context.Context, queries []string) [][]models.EvidenceSnippet
}

type Engine interface {
	Generate(ctx context.Context, in recommend.Input) ([]models.RecommendationCandidate, string, error)
}

type Store interface {
	Create(ctx context.Context, a *models.Assessment) error
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Assessment, error)
}

type Service struct {
	store     Store
	patients  PatientStore
	formulary FormularyStore
	evidence  EvidenceSearcher
	engine    Engine
	producer  *kafka.Producer
}

func NewService(store Store, patientStore PatientStore, formularyStore FormularyStore, searcher EvidenceSearcher, engine Engine, producer *kafka.Producer) *Service {
	return &Service{
		store:     store,
		patients:  patientStore,
		formulary: formularyStore,
		evidence:  searcher,
		engine:    engine,
		producer:  producer,
	}
}

// Run executes one assessment end to end: resolve the current biologic,
// classify, retrieve supporting evidence, generate recommendations, persist.
// The assessment row is committed before any recommendation row; a failed
// recommendation write is logged and skipped, and the assessment stands.
func (s *Service) Run(ctx context.Context, req models.AssessmentRequest) (*models.Assessment, error) {
	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	currentDrug := strings.TrimSpace(req.CurrentDrugName)
	if currentDrug == "" {
		claim, err := s.patients.LatestClaim(ctx, patient.ID)
		if err == nil {
			currentDrug = claim.DrugName
		} else if !errors.Is(err, patients.ErrNotFound) {
			return nil, err
		}
	}
	if currentDrug == "" {
		return nil, recommend.ErrNoCurrentBiologic
	}

	tier := 0
	priorAuth := false
	annualCost := decimal.Zero
	copay := decimal.Zero
	entry, err := s.formulary.FindByPlanAndDrug(ctx, patient.PlanID, currentDrug)
	switch {
	case err == nil:
		tier = entry.Tier
		priorAuth = entry.PriorAuth
		annualCost = entry.AnnualCost
		copay = entry.MemberCopay
	case errors.Is(err, formulary.ErrNotFound):
		// No formulary line for the current drug; fall back to what the
		// claims history says the drug actually cost over the last year.
		annualCost, err = s.patients.AnnualDrugCost(ctx, patient.ID, currentDrug)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	result := triage.Classify(triage.Input{
		Diagnosis:          req.Diagnosis,
		PsoriaticArthritis: req.PsoriaticArthritis,
		DLQIScore:          req.DLQIScore,
		MonthsStable:       req.MonthsStable,
		CurrentTier:        tier,
		PriorAuthRequired:  priorAuth,
	})

	candidates, err := s.formulary.ListByPlan(ctx, patient.PlanID)
	if err != nil {
		return nil, err
	}

	var snippets []models.EvidenceSnippet
	if s.evidence != nil {
		for _, batch := range s.evidence.SearchAll(ctx, evidenceQueries(req, currentDrug, result)) {
			snippets = append(snippets, batch...)
		}
	}

	recs, engine, err := s.engine.Generate(ctx, recommend.Input{
		Diagnosis:          req.Diagnosis,
		PsoriaticArthritis: req.PsoriaticArthritis,
		Triage:             result,
		CurrentDrugName:    currentDrug,
		CurrentAnnualCost:  annualCost,
		CurrentCopay:       copay,
		Candidates:         candidates,
		Evidence:           snippets,
	})
	if err != nil {
		return nil, err
	}

	assessment := &models.Assessment{
		PatientID:          patient.ID,
		Diagnosis:          req.Diagnosis,
		PsoriaticArthritis: req.PsoriaticArthritis,
		DLQIScore:          req.DLQIScore,
		MonthsStable:       req.MonthsStable,
		CurrentDrugName:    currentDrug,
		Notes:              req.Notes,
		CanDoseReduce:      result.CanDoseReduce,
		SwitchRecommended:  result.SwitchRecommended,
		Quadrant:           result.Quadrant,
		EngineUsed:         engine,
	}
	if err := s.store.Create(ctx, assessment); err != nil {
		return nil, err
	}

	for _, candidate := range recs {
		rec := models.Recommendation{
			AssessmentID:   assessment.ID,
			PatientID:      patient.ID,
			Rank:           candidate.Rank,
			Type:           candidate.Type,
			TargetDrugName: candidate.TargetDrugName,
			Rationale:      candidate.Rationale,
			Costs:          candidate.Costs,
		}
		if err := s.store.SaveRecommendation(ctx, &rec); err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"assessment_id": assessment.ID,
				"rank":          candidate.Rank,
			}).Error("failed to persist recommendation, skipping")
			continue
		}
		assessment.Recommendations = append(assessment.Recommendations, rec)
	}

	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, "assessment", "assessment-service", map[string]interface{}{
			"assessment_id":   assessment.ID.String(),
			"patient_id":      patient.ID.String(),
			"quadrant":        assessment.Quadrant,
			"engine":          engine,
			"recommendations": len(assessment.Recommendations),
		}); err != nil {
			logger.Log.WithError(err).Warn("failed to publish assessment event")
		}
	}

	return assessment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Assessment, error) {
	return s.store.ListByPatient(ctx, patientID, limit)
}

// evidenceQueries builds the retrieval fan-out for one assessment. Queries
// are independent and ordered from most to least specific.
func evidenceQueries(req models.AssessmentRequest, currentDrug string, result triage.Result) []string {
	queries := []string{
		currentDrug + " dose reduction interval extension " + req.Diagnosis,
	}
	if result.SwitchRecommended {
		queries = append(queries, "biosimilar switch outcomes "+currentDrug)
	}
	if req.PsoriaticArthritis {
		queries = append(queries, "biologic selection psoriatic arthritis comorbidity")
	}
	return queries
}
