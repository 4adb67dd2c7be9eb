package mocks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rxscan/internal/domain"
)

// MockScanRepository is a mock implementation of port.ScanRepository.
type MockScanRepository struct {
	mock.Mock
}

func (m *MockScanRepository) Create(ctx context.Context, rec *domain.ScanRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanRepository) List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ScanRecord), args.Int(1), args.Error(2)
}

func (m *MockScanRepository) UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error {
	args := m.Called(ctx, id, data)
	return args.Error(0)
}

func (m *MockScanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
