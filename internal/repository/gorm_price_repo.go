package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/coinhatch/coinhatch/internal/domain"
)

// GormPriceRepository implements PriceRepository using GORM.
type GormPriceRepository struct {
	db *gorm.DB
}

// NewGormPriceRepository creates a new GORM-based price snapshot repository.
func NewGormPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

// Insert stores a batch of observed price snapshots.
func (r *GormPriceRepository) Insert(ctx context.Context, snapshots []domain.PriceSnapshotModel) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&snapshots).Error
}
