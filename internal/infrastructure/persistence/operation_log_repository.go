package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/infrastructure/persistence/models"
)

// GormOperationLogRepository implements audit.OperationLogRepository using GORM
type GormOperationLogRepository struct {
	db *gorm.DB
}

// NewGormOperationLogRepository creates a new GormOperationLogRepository
func NewGormOperationLogRepository(db *gorm.DB) *GormOperationLogRepository {
	return &GormOperationLogRepository{db: db}
}

// Append writes one audit entry. Entries are never updated or deleted.
func (r *GormOperationLogRepository) Append(ctx context.Context, entry *audit.OperationLog) error {
	var model models.OperationLogModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindRecent lists audit entries, newest first
func (r *GormOperationLogRepository) FindRecent(ctx context.Context, limit, offset int) ([]*audit.OperationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OperationLogModel{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var logModels []models.OperationLogModel
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*audit.OperationLog, len(logModels))
	for i := range logModels {
		entries[i] = logModels[i].ToDomain()
	}
	return entries, total, nil
}
