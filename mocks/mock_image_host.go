package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rxscan/internal/port"
)

// MockImageHost is a mock implementation of port.ImageHost.
type MockImageHost struct {
	mock.Mock
}

func (m *MockImageHost) Upload(ctx context.Context, input port.HostInput) (*port.HostedImage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.HostedImage), args.Error(1)
}

func (m *MockImageHost) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
