// Package gcs hosts scan images in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"rxscan/internal/config"
	"rxscan/internal/port"
)

const publicBaseURL = "https://storage.googleapis.com"

// ImageHost implements port.ImageHost on a GCS bucket. Objects are
// addressed by their public storage.googleapis.com URL, so the bucket must
// grant read access to the completion provider.
type ImageHost struct {
	client *storage.Client
	bucket string
}

// NewImageHost creates a GCS client using cfg.CredentialsFile when set and
// application default credentials otherwise.
func NewImageHost(ctx context.Context, cfg *config.GCSConfig) (*ImageHost, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &ImageHost{client: client, bucket: cfg.Bucket}, nil
}

// Close releases the underlying client.
func (h *ImageHost) Close() error {
	return h.client.Close()
}

func (h *ImageHost) Upload(ctx context.Context, input port.HostInput) (*port.HostedImage, error) {
	w := h.client.Bucket(h.bucket).Object(input.Key).NewWriter(ctx)
	w.ContentType = input.ContentType
	w.ChunkSize = 0

	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gcs upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gcs upload: %w", err)
	}

	return &port.HostedImage{URL: PublicURL(h.bucket, input.Key), ID: input.Key}, nil
}

func (h *ImageHost) Delete(ctx context.Context, id string) error {
	err := h.client.Bucket(h.bucket).Object(id).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete: %w", err)
	}
	return nil
}

// PublicURL is the https address of an object.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", publicBaseURL, bucket, (&url.URL{Path: key}).EscapedPath())
}
