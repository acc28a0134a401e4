package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/patients"
	"github.com/dermacost-ai/platform/pkg/recommend"
)

func init() {
	logger.Init()
}

type fakePatients struct {
	patient *patients.Patient
	claim   *patients.PharmacyClaim
	annual  decimal.Decimal
}

func (f *fakePatients) Get(ctx context.Context, id uuid.UUID) (*patients.Patient, error) {
	if f.patient == nil || f.patient.ID != id {
		return nil, patients.ErrNotFound
	}
	return f.patient, nil
}

func (f *fakePatients) LatestClaim(ctx context.Context, patientID uuid.UUID) (*patients.PharmacyClaim, error) {
	if f.claim == nil {
		return nil, patients.ErrNotFound
	}
	return f.claim, nil
}

func (f *fakePatients) AnnualDrugCost(ctx context.Context, patientID uuid.UUID, drugName string) (decimal.Decimal, error) {
	return f.annual, nil
}

type fakeFormulary struct {
	entries []formulary.Drug
}

func (f *fakeFormulary) FindByPlanAndDrug(ctx context.Context, planID, drugName string) (*formulary.Drug, error) {
	for i := range f.entries {
		if f.entries[i].PlanID == planID && f.entries[i].DrugName == drugName {
			return &f.entries[i], nil
		}
	}
	return nil, formulary.ErrNotFound
}

func (f *fakeFormulary) ListByPlan(ctx context.Context, planID string) ([]formulary.Drug, error) {
	return f.entries, nil
}

type fakeSearcher struct {
	queries []string
}

func (f *fakeSearcher) SearchAll(ctx context.Context, queries []string) [][]models.EvidenceSnippet {
	f.queries = queries
	results := make([][]models.EvidenceSnippet, len(queries))
	for i := range queries {
		results[i] = []models.EvidenceSnippet{{Title: queries[i], Score: 0.9}}
	}
	return results
}

type fakeEngine struct {
	in   recommend.Input
	recs []models.RecommendationCandidate
	err  error
}

func (f *fakeEngine) Generate(ctx context.Context, in recommend.Input) ([]models.RecommendationCandidate, string, error) {
	f.in = in
	if f.err != nil {
		return nil, "", f.err
	}
	return f.recs, recommend.EngineRules, nil
}

type fakeStore struct {
	assessments []*models.Assessment
	recs        []*models.Recommendation
	recErrAt    int // 1-based rank whose write fails; 0 disables
}

func (f *fakeStore) Create(ctx context.Context, a *models.Assessment) error {
	a.ID = uuid.New()
	f.assessments = append(f.assessments, a)
	return nil
}

func (f *fakeStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if f.recErrAt != 0 && rec.Rank == f.recErrAt {
		return errors.New("write failed")
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	for _, a := range f.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range f.assessments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func testFixtures() (*fakePatients, *fakeFormulary, *fakeEngine, *fakeStore) {
	patientID := uuid.New()
	ps := &fakePatients{
		patient: &patients.Patient{ID: patientID, MemberID: "M100", PlanID: "PLAN-A"},
		claim: &patients.PharmacyClaim{
			PatientID: patientID,
			DrugName:  "Humira",
		},
	}
	fs := &fakeFormulary{entries: []formulary.Drug{
		{PlanID: "PLAN-A", DrugName: "Humira", Tier: 4, PriorAuth: true,
			AnnualCost: decimal.NewFromInt(84000), MemberCopay: decimal.NewFromInt(3600)},
		{PlanID: "PLAN-A", DrugName: "Amjevita", Tier: 2, Biosimilar: true, ReferenceProduct: "Humira",
			AnnualCost: decimal.NewFromInt(44000), MemberCopay: decimal.NewFromInt(1200)},
	}}
	eng := &fakeEngine{recs: []models.RecommendationCandidate{
		{Rank: 1, Type: models.RecTypeSwitchBiosimilar, TargetDrugName: "Amjevita", Rationale: "cheaper biosimilar"},
		{Rank: 2, Type: models.RecTypeDoseReduction, Rationale: "stable disease"},
	}}
	return ps, fs, eng, &fakeStore{}
}

func TestRunPersistsAssessmentAndRecommendations(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	req := models.AssessmentRequest{
		PatientID:    ps.patient.ID,
		Diagnosis:    "psoriasis",
		DLQIScore:    3,
		MonthsStable: 12,
	}
	got, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.CurrentDrugName != "Humira" {
		t.Errorf("current drug = %s, want Humira inferred from latest claim", got.CurrentDrugName)
	}
	if !got.CanDoseReduce || !got.SwitchRecommended {
		t.Errorf("triage flags wrong: %+v", got)
	}
	if got.Quadrant != "stable-nonaligned" {
		t.Errorf("quadrant = %s, want stable-nonaligned", got.Quadrant)
	}
	if got.EngineUsed != recommend.EngineRules {
		t.Errorf("engine = %s", got.EngineUsed)
	}
	if len(store.assessments) != 1 || len(store.recs) != 2 {
		t.Fatalf("persisted %d assessments / %d recs, want 1 / 2", len(store.assessments), len(store.recs))
	}
	for _, rec := range store.recs {
		if rec.AssessmentID != got.ID || rec.PatientID != ps.patient.ID {
			t.Errorf("recommendation not linked: %+v", rec)
		}
	}

	// Generator inputs come from the formulary entry for the current drug.
	if !eng.in.CurrentAnnualCost.Equal(decimal.NewFromInt(84000)) {
		t.Errorf("current annual cost = %s, want 84000", eng.in.CurrentAnnualCost)
	}
	if len(eng.in.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(eng.in.Candidates))
	}
}

func TestRunExplicitDrugOverridesClaims(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	req := models.AssessmentRequest{
		PatientID:       ps.patient.ID,
		Diagnosis:       "psoriasis",
		CurrentDrugName: "Amjevita",
		DLQIScore:       2,
		MonthsStable:    8,
	}
	got, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.CurrentDrugName != "Amjevita" {
		t.Errorf("current drug = %s, want the one named in the request", got.CurrentDrugName)
	}
	if got.SwitchRecommended {
		t.Error("tier-2 drug with no PA should not trigger a switch")
	}
}

func TestRunNoCurrentBiologic(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	ps.claim = nil
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	_, err := svc.Run(context.Background(), models.AssessmentRequest{
		PatientID: ps.patient.ID,
		Diagnosis: "psoriasis",
	})
	if !errors.Is(err, recommend.ErrNoCurrentBiologic) {
		t.Fatalf("err = %v, want ErrNoCurrentBiologic", err)
	}
	if len(store.assessments) != 0 {
		t.Error("nothing should be persisted when no biologic is on file")
	}
}

func TestRunUnknownPatient(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	_, err := svc.Run(context.Background(), models.AssessmentRequest{PatientID: uuid.New()})
	if !errors.Is(err, patients.ErrNotFound) {
		t.Fatalf("err = %v, want patients.ErrNotFound", err)
	}
}

func TestRunClaimsCostFallback(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	ps.claim.DrugName = "Cosentyx" // no formulary line for this drug
	ps.annual = decimal.NewFromInt(52000)
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	_, err := svc.Run(context.Background(), models.AssessmentRequest{
		PatientID:    ps.patient.ID,
		Diagnosis:    "psoriasis",
		DLQIScore:    4,
		MonthsStable: 10,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !eng.in.CurrentAnnualCost.Equal(decimal.NewFromInt(52000)) {
		t.Errorf("annual cost = %s, want claims-derived 52000", eng.in.CurrentAnnualCost)
	}
	if eng.in.Triage.FormularyAligned {
		t.Error("a drug without a formulary line is never aligned")
	}
}

func TestRunRecommendationWriteFailureKeepsAssessment(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	store.recErrAt = 1
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	got, err := svc.Run(context.Background(), models.AssessmentRequest{
		PatientID:    ps.patient.ID,
		Diagnosis:    "psoriasis",
		DLQIScore:    3,
		MonthsStable: 12,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.assessments) != 1 {
		t.Fatal("assessment must stand even when a recommendation write fails")
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0].Rank != 2 {
		t.Errorf("expected only rank 2 to survive, got %+v", got.Recommendations)
	}
}

func TestRunEngineErrorPersistsNothing(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	eng.err = errors.New("engine down")
	svc := NewService(store, ps, fs, &fakeSearcher{}, eng, nil)

	_, err := svc.Run(context.Background(), models.AssessmentRequest{
		PatientID:    ps.patient.ID,
		Diagnosis:    "psoriasis",
		DLQIScore:    3,
		MonthsStable: 12,
	})
	if err == nil {
		t.Fatal("expected the engine error to surface")
	}
	if len(store.assessments) != 0 {
		t.Error("nothing should be persisted when generation fails")
	}
}

func TestEvidenceQueries(t *testing.T) {
	ps, fs, eng, store := testFixtures()
	searcher := &fakeSearcher{}
	svc := NewService(store, ps, fs, searcher, eng, nil)

	_, err := svc.Run(context.Background(), models.AssessmentRequest{
		PatientID:          ps.patient.ID,
		Diagnosis:          "psoriasis",
		PsoriaticArthritis: true,
		DLQIScore:          3,
		MonthsStable:       12,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Stable on a tier-4 PA drug with PsA: dose query, switch query, PsA query.
	if len(searcher.queries) != 3 {
		t.Fatalf("got %d queries, want 3: %v", len(searcher.queries), searcher.queries)
	}
	if len(eng.in.Evidence) != 3 {
		t.Errorf("got %d snippets, want one per query", len(eng.in.Evidence))
	}
}
