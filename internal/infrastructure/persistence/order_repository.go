package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/shared"
	"github.com/logistics/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// SaveBatch persists the whole batch in one transaction: either every order
// is stored or none is. A duplicate order number fails the entire batch.
func (r *GormOrderRepository) SaveBatch(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderModels := make([]models.OrderModel, len(orders))
	for i, o := range orders {
		orderModels[i].FromDomain(o)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(orderModels, 200).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("DUPLICATE_ORDER_NUMBER", "订单保存失败: 单号已存在")
		}
		return fmt.Errorf("保存订单失败: %w", err)
	}
	return nil
}

// UpdateSyncStatus writes the reconciliation outcome of each order back
func (r *GormOrderRepository) UpdateSyncStatus(ctx context.Context, orders []*order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			res := tx.Model(&models.OrderModel{}).
				Where("id = ?", o.ID).
				Updates(map[string]any{
					"sync_state": string(o.SyncState),
					"sync_error": o.SyncError,
				})
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders by archive flag, newest first
func (r *GormOrderRepository) FindAll(ctx context.Context, archived bool, limit, offset int) ([]*order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("archived = ?", archived)

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

	var orderModels []models.OrderModel
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*order.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, total, nil
}

// Archive moves an order to the archive
func (r *GormOrderRepository) Archive(ctx context.Context, id uuid.UUID) error {
	return r.setArchived(ctx, id, true)
}

// Restore brings an archived order back
func (r *GormOrderRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.setArchived(ctx, id, false)
}

func (r *GormOrderRepository) setArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	res := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND archived = ?", id, !archived).
		Update("archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete permanently removes an archived order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.OrderModel{}, "id = ? AND archived = true", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
