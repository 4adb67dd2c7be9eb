package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rxscan/internal/domain"
	"rxscan/internal/service"
)

// MockScanService is a mock implementation of service.ScanService.
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) ScanProduct(ctx context.Context, input service.ScanInput) (*domain.ScanRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) ScanBill(ctx context.Context, input service.ScanInput) ([]domain.ScanRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) ScanPrescription(ctx context.Context, input service.ScanInput) (*domain.ScanRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ScanRecord), args.Int(1), args.Error(2)
}

func (m *MockScanService) UpdatePrescription(ctx context.Context, id uuid.UUID, p domain.Prescription) (*domain.ScanRecord, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScanService) ExportBill(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockScanService) ExportCSV(ctx context.Context, filter domain.ScanFilter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	return args.Error(0)
}
