package completion_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/completion"
)

func TestParseDataURL(t *testing.T) {
	img, err := completion.ParseDataURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, []byte("hello"), img.Data)

	_, err = completion.ParseDataURL("data:image/png,plain")
	assert.ErrorIs(t, err, completion.ErrInvalidImage)

	_, err = completion.ParseDataURL("data:image/png;base64,###")
	assert.ErrorIs(t, err, completion.ErrInvalidImage)
}

func TestResolveImage_FetchesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	img, err := completion.ResolveImage(context.Background(), server.Client(), server.URL+"/photo.webp?v=1")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MediaType)
	assert.Equal(t, []byte("jpeg-bytes"), img.Data)
}

func TestResolveImage_RejectsOtherSchemes(t *testing.T) {
	_, err := completion.ResolveImage(context.Background(), http.DefaultClient, "ftp://host/file.png")
	assert.ErrorIs(t, err, completion.ErrInvalidImage)
}

func TestMediaTypeFromPath(t *testing.T) {
	assert.Equal(t, "image/png", completion.MediaTypeFromPath("a/b/C.PNG"))
	assert.Equal(t, "image/gif", completion.MediaTypeFromPath("x.gif#frag"))
	assert.Equal(t, "image/jpeg", completion.MediaTypeFromPath("noext"))
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, completion.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, completion.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 30, completion.ParseRetryAfterHeader("30"))
}
