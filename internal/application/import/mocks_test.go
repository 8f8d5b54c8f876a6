package importapp

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/logistics/backend/internal/domain/audit"
	"github.com/logistics/backend/internal/domain/order"
	"github.com/logistics/backend/internal/domain/tracking"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) SaveBatch(ctx context.Context, orders []*order.Order) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateSyncStatus(ctx context.Context, orders []*order.Order) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, archived bool, limit, offset int) ([]*order.Order, int64, error) {
	args := m.Called(ctx, archived, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Archive(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) Restore(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOperationLogRepository is a mock implementation of audit.OperationLogRepository
type MockOperationLogRepository struct {
	mock.Mock
}

func (m *MockOperationLogRepository) Append(ctx context.Context, entry *audit.OperationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOperationLogRepository) FindRecent(ctx context.Context, limit, offset int) ([]*audit.OperationLog, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*audit.OperationLog), args.Get(1).(int64), args.Error(2)
}

// stubTrackingService records every request and fails the ones the test
// selects.
type stubTrackingService struct {
	mu       sync.Mutex
	requests []*tracking.SyncRequest
	fail     func(req *tracking.SyncRequest) error
}

func (s *stubTrackingService) QueryAndSync(_ context.Context, req *tracking.SyncRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.fail != nil {
		return s.fail(req)
	}
	return nil
}

func (s *stubTrackingService) calls() []*tracking.SyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tracking.SyncRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// stubRunLock is an in-memory run lock with call counters
type stubRunLock struct {
	mu       sync.Mutex
	held     bool
	busy     bool
	acquires int
	releases int
}

func (l *stubRunLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.busy || l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubRunLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
	return nil
}

func (l *stubRunLock) releaseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releases
}
