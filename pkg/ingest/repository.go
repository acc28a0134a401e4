package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Batch{})
}

func (r *Repository) Create(ctx context.Context, batch *Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	batch.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]Batch, error) {
	var batches []Batch
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&batches).Error
	return batches, err
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&Batch{})
	return result.RowsAffected, result.Error
}
