package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/config"
	"rxscan/internal/port"
	s3storage "rxscan/internal/storage/s3"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"abc"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)
	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newHost(t *testing.T, endpoint string) *s3storage.ImageHost {
	t.Helper()
	host, err := s3storage.NewImageHost(context.Background(), &config.S3Config{
		Region:        "ap-south-1",
		Bucket:        "rx-images",
		Endpoint:      endpoint,
		AccessKey:     "AKIDTEST",
		SecretKey:     "secret",
		PresignExpiry: 600,
	})
	require.NoError(t, err)
	return host
}

func TestImageHost_UploadReturnsPresignedURL(t *testing.T) {
	server, requests := newFakeS3(t)
	host := newHost(t, server.URL)

	hosted, err := host.Upload(context.Background(), port.HostInput{
		Key:         "scans/product/1/label.jpg",
		Body:        strings.NewReader("jpeg"),
		ContentType: "image/jpeg",
		Size:        4,
	})

	require.NoError(t, err)
	assert.Equal(t, "scans/product/1/label.jpg", hosted.ID)
	assert.True(t, strings.HasPrefix(hosted.URL, server.URL+"/rx-images/scans/product/1/label.jpg?"))
	assert.Contains(t, hosted.URL, "X-Amz-Expires=600")

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/rx-images/scans/product/1/label.jpg", reqs[0].path)
}

func TestImageHost_Delete(t *testing.T) {
	server, requests := newFakeS3(t)
	host := newHost(t, server.URL)

	require.NoError(t, host.Delete(context.Background(), "scans/bill/2/page-1.png"))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].method)
	assert.Equal(t, "/rx-images/scans/bill/2/page-1.png", reqs[0].path)
}
