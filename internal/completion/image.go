package completion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

// ErrInvalidImage is returned for an image reference that is neither an
// http(s) URL nor a base64 data URL.
var ErrInvalidImage = errors.New("invalid image reference")

const maxImageBytes = 20 << 20

// Image is an image reference resolved to bytes.
type Image struct {
	MediaType string
	Data      []byte
}

// IsDataURL reports whether ref is an inline data: URL.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// ParseDataURL decodes a base64 data URL such as data:image/png;base64,....
func ParseDataURL(ref string) (*Image, error) {
	if !IsDataURL(ref) {
		return nil, fmt.Errorf("%w: not a data URL", ErrInvalidImage)
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URL must be base64 encoded", ErrInvalidImage)
	}
	mediaType := strings.TrimSuffix(header, ";base64")
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return &Image{MediaType: mediaType, Data: data}, nil
}

// ResolveImage returns the bytes behind ref, fetching http(s) URLs with client.
func ResolveImage(ctx context.Context, client *http.Client, ref string) (*Image, error) {
	if IsDataURL(ref) {
		return ParseDataURL(ref)
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImage, Truncate(ref, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("creating image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	mediaType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = MediaTypeFromPath(ref)
	}
	return &Image{MediaType: mediaType, Data: data}, nil
}

// MediaTypeFromPath guesses an image media type from a URL or file name,
// defaulting to image/jpeg.
func MediaTypeFromPath(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
