package evidence

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Document is one knowledge-base entry. Embeddings are written by the
// knowledge-indexer after upload; only indexed documents are searchable.
// The vector dimension must match LLM_EMBEDDING_DIM.
type Document struct {
	ID        uuid.UUID       `json:"id" gorm:"primaryKey;column:id"`
	Title     string          `json:"title" gorm:"column:title"`
	Content   string          `json:"content" gorm:"column:content;type:text"`
	Source    string          `json:"source,omitempty" gorm:"column:source"`
	Embedding pgvector.Vector `json:"-" gorm:"column:embedding;type:vector"`
	Indexed   bool            `json:"indexed" gorm:"column:indexed"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "knowledge_documents"
}
