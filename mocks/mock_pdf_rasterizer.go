package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPDFRasterizer is a mock implementation of port.PDFRasterizer.
type MockPDFRasterizer struct {
	mock.Mock
}

func (m *MockPDFRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	args := m.Called(ctx, pdfPath, outDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
