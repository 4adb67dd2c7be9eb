package completion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rxscan/internal/completion"
	"rxscan/internal/config"
	"rxscan/internal/port"
	"rxscan/mocks"
)

var breakerCfg = config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}

func newFallback(clients ...*mocks.MockCompletionClient) *completion.FallbackClient {
	names := []string{"together", "claude", "gemini"}
	providers := make([]completion.Provider, len(clients))
	for i, c := range clients {
		providers[i] = completion.Provider{Name: names[i], Client: c}
	}
	return completion.NewFallbackClient(providers, breakerCfg, nil, nil)
}

func TestFallbackClient_FirstSucceeds(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("Batch No: B1", nil)

	text, err := newFallback(p1, p2).Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Batch No: B1", text)
	p2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackClient_FirstFails_SecondSucceeds(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", errors.New("connection reset"))
	p2.On("Complete", mock.Anything, req).Return("MRP: 10", nil)

	text, err := newFallback(p1, p2).Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "MRP: 10", text)
}

func TestFallbackClient_RateLimitOpensBreaker(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", completion.NewRateLimitError("together", errors.New("429"), 30))
	p2.On("Complete", mock.Anything, req).Return("ok", nil)

	fc := newFallback(p1, p2)
	for i := 0; i < 3; i++ {
		text, err := fc.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}

	p1.AssertNumberOfCalls(t, "Complete", 1)
	p2.AssertNumberOfCalls(t, "Complete", 3)
}

func TestFallbackClient_ConsecutiveFailuresOpenBreaker(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", errors.New("500"))
	p2.On("Complete", mock.Anything, req).Return("ok", nil)

	fc := newFallback(p1, p2)
	for i := 0; i < 4; i++ {
		_, err := fc.Complete(context.Background(), req)
		require.NoError(t, err)
	}

	p1.AssertNumberOfCalls(t, "Complete", 2)
}

func TestFallbackClient_EmptyCompletionDoesNotTrip(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", completion.ErrEmptyCompletion)
	p2.On("Complete", mock.Anything, req).Return("ok", nil)

	fc := newFallback(p1, p2)
	for i := 0; i < 3; i++ {
		_, err := fc.Complete(context.Background(), req)
		require.NoError(t, err)
	}

	p1.AssertNumberOfCalls(t, "Complete", 3)
}

func TestFallbackClient_AllFail(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	p2 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", errors.New("first down"))
	p2.On("Complete", mock.Anything, req).Return("", errors.New("second down"))

	_, err := newFallback(p1, p2).Complete(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all completion providers failed")
	assert.Contains(t, err.Error(), "second down")
}

func TestFallbackClient_AllOpen(t *testing.T) {
	p1 := new(mocks.MockCompletionClient)
	req := port.CompletionRequest{Prompt: "read"}
	p1.On("Complete", mock.Anything, req).Return("", completion.NewRateLimitError("together", errors.New("429"), 0))

	fc := newFallback(p1)
	_, err := fc.Complete(context.Background(), req)
	var rlErr *completion.RateLimitError
	require.True(t, errors.As(err, &rlErr))

	_, err = fc.Complete(context.Background(), req)
	assert.ErrorIs(t, err, completion.ErrAllProvidersUnavailable)
}
