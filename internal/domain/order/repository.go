package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for imported orders.
// SaveBatch is the single store-submission step of an import: it persists the
// whole batch atomically or not at all.
type Repository interface {
	SaveBatch(ctx context.Context, orders []*Order) error
	UpdateSyncStatus(ctx context.Context, orders []*Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, archived bool, limit, offset int) ([]*Order, int64, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
