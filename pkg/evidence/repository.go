package evidence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("knowledge document not found")

type Repository struct {
	db  *gorm.DB
	dim int
}

// NewRepository wires the document store. dim is the embedding column width
// and must match the embedding model in use; values <= 0 fall back to 1536.
func NewRepository(db *gorm.DB, dim int) *Repository {
	if dim <= 0 {
		dim = 1536
	}
	return &Repository{db: db, dim: dim}
}

func (r *Repository) AutoMigrate() error {
	if err := r.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	if err := r.db.AutoMigrate(&Document{}); err != nil {
		return err
	}
	return r.db.Exec(fmt.Sprintf(
		"ALTER TABLE knowledge_documents ALTER COLUMN embedding TYPE vector(%d)", r.dim,
	)).Error
}

func (r *Repository) Create(ctx context.Context, doc *Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	result := r.db.WithContext(ctx).First(&doc, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &doc, result.Error
}

func (r *Repository) ListUnindexed(ctx context.Context, limit int) ([]Document, error) {
	var docs []Document
	err := r.db.WithContext(ctx).
		Where("indexed = ?", false).
		Order("created_at").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (r *Repository) MarkIndexed(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) error {
	return r.db.WithContext(ctx).Model(&Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":  embedding,
			"indexed":    true,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SimilaritySearch ranks indexed documents by cosine distance to the query
// embedding and converts distance to a similarity score.
func (r *Repository) SimilaritySearch(ctx context.Context, embedding pgvector.Vector, limit int) ([]models.EvidenceSnippet, error) {
	var rows []struct {
		Title    string
		Content  string
		Distance float64
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT title, content, embedding <=> ? AS distance
			 FROM knowledge_documents
			 WHERE indexed
			 ORDER BY distance
			 LIMIT ?`, embedding, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snippets := make([]models.EvidenceSnippet, 0, len(rows))
	for _, row := range rows {
		snippets = append(snippets, models.EvidenceSnippet{
			Title:   row.Title,
			Content: row.Content,
			Score:   1 - row.Distance,
		})
	}
	return snippets, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Document, error) {
	var docs []Document
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&docs).Error
	return docs, err
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&Document{})
	return result.RowsAffected, result.Error
}
