package ingest

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dermacost-ai/platform/pkg/catalog"
	"github.com/dermacost-ai/platform/pkg/common/kafka"
	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/evidence"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/patients"
)

// PatientStore is the slice of the patient repository uploads need.
type PatientStore interface {
	UpsertByMemberID(ctx context.Context, patient *patients.Patient) error
	GetByMemberID(ctx context.Context, memberID string) (*patients.Patient, error)
	CreateClaim(ctx context.Context, claim *patients.PharmacyClaim) error
}

type FormularyStore interface {
	Upsert(ctx context.Context, drug *formulary.Drug) error
}

type KnowledgeStore interface {
	Create(ctx context.Context, doc *evidence.Document) error
}

type BatchStore interface {
	Create(ctx context.Context, batch *Batch) error
	List(ctx context.Context, limit int) ([]Batch, error)
}

// Invalidator drops cached cost aggregates when new claims land.
type Invalidator interface {
	Invalidate(ctx context.Context, patientID uuid.UUID)
}

type Service struct {
	patients  PatientStore
	formulary FormularyStore
	knowledge KnowledgeStore
	batches   BatchStore
	catalog   catalog.Catalog
	cache     Invalidator
	producer  *kafka.Producer
	indexPub  *kafka.Producer
}

func NewService(
	patientStore PatientStore,
	formularyStore FormularyStore,
	knowledgeStore KnowledgeStore,
	batchStore BatchStore,
	cat catalog.Catalog,
	cache Invalidator,
	producer *kafka.Producer,
	indexPub *kafka.Producer,
) *Service {
	return &Service{
		patients:  patientStore,
		formulary: formularyStore,
		knowledge: knowledgeStore,
		batches:   batchStore,
		catalog:   cat,
		cache:     cache,
		producer:  producer,
		indexPub:  indexPub,
	}
}

func (s *Service) IngestEligibility(ctx context.Context, fileName string, r io.Reader) (*models.UploadSummary, error) {
	rows, rowErrs, total, err := ParseEligibility(r)
	if err != nil {
		return nil, err
	}

	accepted := 0
	for _, row := range rows {
		patient := &patients.Patient{
			MemberID:            row.MemberID,
			FirstName:           row.FirstName,
			LastName:            row.LastName,
			DateOfBirth:         row.DateOfBirth,
			PlanID:              row.PlanID,
			CostCategory:        row.CostCategory,
			BenchmarkAnnualCost: row.BenchmarkAnnualCost,
		}
		if err := s.patients.UpsertByMemberID(ctx, patient); err != nil {
			return nil, err
		}
		accepted++
	}

	return s.finishBatch(ctx, KindEligibility, fileName, total, accepted, rowErrs)
}

func (s *Service) IngestClaims(ctx context.Context, fileName string, r io.Reader) (*models.UploadSummary, error) {
	rows, rowErrs, total, err := ParseClaims(r)
	if err != nil {
		return nil, err
	}

	accepted := 0
	for _, row := range rows {
		patient, err := s.patients.GetByMemberID(ctx, row.MemberID)
		if err == patients.ErrNotFound {
			rowErrs = append(rowErrs, models.RowError{
				Row:     row.Line,
				Message: "no patient found for member " + row.MemberID,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		drugName := row.DrugName
		if drugName == "" {
			if drug, ok := s.catalog.Lookup(row.NDC); ok {
				drugName = drug.Name
			}
		}

		claim := &patients.PharmacyClaim{
			PatientID:     patient.ID,
			MemberID:      row.MemberID,
			FillDate:      row.FillDate,
			NDC:           row.NDC,
			DrugName:      drugName,
			MemberPaid:    row.MemberPaid,
			PlanPaid:      row.PlanPaid,
			TrueDrugCost:  row.TrueDrugCost,
			DiagnosisCode: row.DiagnosisCode,
		}
		if err := s.patients.CreateClaim(ctx, claim); err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, patient.ID)
		}
		accepted++
	}

	return s.finishBatch(ctx, KindClaims, fileName, total, accepted, rowErrs)
}

func (s *Service) IngestFormulary(ctx context.Context, fileName string, r io.Reader) (*models.UploadSummary, error) {
	rows, rowErrs, total, err := ParseFormulary(r)
	if err != nil {
		return nil, err
	}

	accepted := 0
	for _, row := range rows {
		biosimilar := row.Biosimilar
		reference := row.ReferenceProduct
		if !biosimilar {
			if drug, ok := s.catalog.LookupName(row.DrugName); ok && drug.Biosimilar {
				biosimilar = true
				if reference == "" {
					reference = drug.ReferenceProduct
				}
			}
		}

		entry := &formulary.Drug{
			PlanID:           row.PlanID,
			DrugName:         row.DrugName,
			Tier:             row.Tier,
			PriorAuth:        row.PriorAuth,
			AnnualCost:       row.AnnualCost,
			MemberCopay:      row.MemberCopay,
			Biosimilar:       biosimilar,
			ReferenceProduct: reference,
		}
		if err := s.formulary.Upsert(ctx, entry); err != nil {
			return nil, err
		}
		accepted++
	}

	return s.finishBatch(ctx, KindFormulary, fileName, total, accepted, rowErrs)
}

func (s *Service) IngestKnowledge(ctx context.Context, fileName string, r io.Reader) (*models.UploadSummary, error) {
	rows, rowErrs, total, err := ParseKnowledge(r)
	if err != nil {
		return nil, err
	}

	accepted := 0
	for _, row := range rows {
		doc := &evidence.Document{
			Title:   row.Title,
			Content: row.Content,
			Source:  row.Source,
		}
		if err := s.knowledge.Create(ctx, doc); err != nil {
			return nil, err
		}
		accepted++

		if s.indexPub != nil {
			if err := s.indexPub.PublishEvent(ctx, "knowledge-index", "ingest-service", map[string]interface{}{
				"document_id": doc.ID.String(),
			}); err != nil {
				logger.Log.WithError(err).WithField("document_id", doc.ID).
					Warn("failed to publish index event; sweep will pick the document up")
			}
		}
	}

	return s.finishBatch(ctx, KindKnowledge, fileName, total, accepted, rowErrs)
}

func (s *Service) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	return s.batches.List(ctx, limit)
}

// finishBatch records the audit row and publishes the upload event. Partial
// success is the designed failure mode: row errors never fail the batch.
func (s *Service) finishBatch(ctx context.Context, kind, fileName string, total, accepted int, rowErrs []models.RowError) (*models.UploadSummary, error) {
	status := StatusCompleted
	switch {
	case len(rowErrs) > 0 && accepted == 0:
		status = StatusFailed
	case len(rowErrs) > 0:
		status = StatusPartial
	}

	errJSON, _ := json.Marshal(rowErrs)
	batch := &Batch{
		Kind:         kind,
		FileName:     fileName,
		TotalRows:    total,
		AcceptedRows: accepted,
		ErrorCount:   len(rowErrs),
		Errors:       errJSON,
		Status:       status,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, "upload", "ingest-service", map[string]interface{}{
			"batch_id": batch.ID.String(),
			"kind":     kind,
			"accepted": accepted,
			"errors":   len(rowErrs),
		}); err != nil {
			logger.Log.WithError(err).Warn("failed to publish upload event")
		}
	}

	return &models.UploadSummary{
		BatchID:      batch.ID.String(),
		Kind:         kind,
		FileName:     fileName,
		TotalRows:    total,
		AcceptedRows: accepted,
		Errors:       rowErrs,
		Status:       status,
		Timestamp:    time.Now().UTC(),
	}, nil
}
