package port

import (
	"context"
	"io"
)

// HostInput encapsulates an image to be published.
type HostInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// HostedImage is a published image: a URL the completion service can fetch
// and an opaque identifier for later deletion.
type HostedImage struct {
	URL string
	ID  string
}

// ImageHost abstracts image publishing.
type ImageHost interface {
	Upload(ctx context.Context, input HostInput) (*HostedImage, error)
	Delete(ctx context.Context, id string) error
}
