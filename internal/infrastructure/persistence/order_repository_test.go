package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/shared"
	"github.com/logistics/backend/internal/infrastructure/persistence/models"
)

// setupOrderTestDB creates an in-memory SQLite database with the orders table
func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OrderModel{}))
	return db
}

func newOrder(t *testing.T, orderNumber string) *order.Order {
	t.Helper()
	o, err := order.New(orderNumber, "张三", "sales", order.StatusPending, order.Details{
		TrackingNumber: "SF" + orderNumber,
		Carrier:        "顺丰速运",
		Phone:          "13800138000",
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveBatchAndFindByID(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	ctx := context.Background()

	orders := []*order.Order{newOrder(t, "A001"), newOrder(t, "A002")}
	require.NoError(t, repo.SaveBatch(ctx, orders))

	found, err := repo.FindByID(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A001", found.OrderNumber)
	assert.Equal(t, "顺丰速运", found.Details.Carrier)
	assert.Equal(t, order.SyncStatePending, found.SyncState)
}

func TestGormOrderRepository_SaveBatchIsAtomic(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, []*order.Order{newOrder(t, "A001")}))

	// second batch contains a duplicate order number and must roll back whole
	err := repo.SaveBatch(ctx, []*order.Order{newOrder(t, "A100"), newOrder(t, "A001")})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_ORDER_NUMBER", domainErr.Code)

	var count int64
	require.NoError(t, db.Model(&models.OrderModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormOrderRepository_SaveBatchEmptyIsNoop(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	assert.NoError(t, repo.SaveBatch(context.Background(), nil))
}

func TestGormOrderRepository_UpdateSyncStatus(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	ctx := context.Background()

	orders := []*order.Order{newOrder(t, "A001"), newOrder(t, "A002")}
	require.NoError(t, repo.SaveBatch(ctx, orders))

	orders[0].MarkSynced()
	orders[1].MarkSyncFailed("tracking provider request timed out")
	require.NoError(t, repo.UpdateSyncStatus(ctx, orders))

	synced, err := repo.FindByID(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, order.SyncStateSynced, synced.SyncState)
	assert.Empty(t, synced.SyncError)

	failed, err := repo.FindByID(ctx, orders[1].ID)
	require.NoError(t, err)
	assert.Equal(t, order.SyncStateFailed, failed.SyncState)
	assert.Contains(t, failed.SyncError, "timed out")
}

func TestGormOrderRepository_FindAllFiltersByArchived(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	ctx := context.Background()

	orders := []*order.Order{newOrder(t, "A001"), newOrder(t, "A002"), newOrder(t, "A003")}
	require.NoError(t, repo.SaveBatch(ctx, orders))
	require.NoError(t, repo.Archive(ctx, orders[1].ID))

	active, total, err := repo.FindAll(ctx, false, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, active, 2)

	archived, total, err := repo.FindAll(ctx, true, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, archived, 1)
	assert.Equal(t, "A002", archived[0].OrderNumber)
}

func TestGormOrderRepository_ArchiveRestoreDelete(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	ctx := context.Background()

	o := newOrder(t, "A001")
	require.NoError(t, repo.SaveBatch(ctx, []*order.Order{o}))

	// deleting an active order is rejected
	require.ErrorIs(t, repo.Delete(ctx, o.ID), shared.ErrNotFound)

	require.NoError(t, repo.Archive(ctx, o.ID))
	// archiving twice finds nothing to archive
	require.ErrorIs(t, repo.Archive(ctx, o.ID), shared.ErrNotFound)

	require.NoError(t, repo.Restore(ctx, o.ID))
	require.NoError(t, repo.Archive(ctx, o.ID))
	require.NoError(t, repo.Delete(ctx, o.ID))

	_, err := repo.FindByID(ctx, o.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_FindByIDUnknown(t *testing.T) {
	repo := NewGormOrderRepository(setupOrderTestDB(t))
	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
