package port

import "context"

// CompletionRequest is one prompt sent to a vision/text completion service.
// ImageURL may be an http(s) URL or a data: URL; empty means text only.
type CompletionRequest struct {
	Prompt      string
	System      string
	ImageURL    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// CompletionClient abstracts the external completion service.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
