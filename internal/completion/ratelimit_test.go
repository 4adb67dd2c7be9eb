package completion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rxscan/internal/completion"
	"rxscan/internal/config"
	"rxscan/internal/port"
	"rxscan/mocks"
)

func TestNewRateLimited_DisabledReturnsNext(t *testing.T) {
	next := new(mocks.MockCompletionClient)
	c := completion.NewRateLimited(next, config.RateLimitConfig{})
	assert.Same(t, next, c)
}

func TestRateLimited_Delegates(t *testing.T) {
	next := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	next.On("Complete", mock.Anything, req).Return("ok", nil)

	c := completion.NewRateLimited(next, config.RateLimitConfig{RequestsPerSecond: 100, Burst: 2})
	text, err := c.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestRateLimited_CancelledContext(t *testing.T) {
	next := new(mocks.MockCompletionClient)
	c := completion.NewRateLimited(next, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	next.On("Complete", mock.Anything, mock.Anything).Return("ok", nil).Once()
	_, err := c.Complete(ctx, port.CompletionRequest{})
	require.NoError(t, err)

	cancel()
	_, err = c.Complete(ctx, port.CompletionRequest{})
	assert.Error(t, err)
	next.AssertNumberOfCalls(t, "Complete", 1)
}
