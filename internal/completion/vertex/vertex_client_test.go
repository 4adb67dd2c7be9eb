package vertex

import (
	"context"
	"net/http"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePart_GCSReference(t *testing.T) {
	part, err := imagePart(context.Background(), http.DefaultClient, "gs://bucket/scans/bill/page-1.png")
	require.NoError(t, err)

	fd, ok := part.(genai.FileData)
	require.True(t, ok)
	assert.Equal(t, "image/png", fd.MIMEType)
	assert.Equal(t, "gs://bucket/scans/bill/page-1.png", fd.FileURI)
}

func TestImagePart_DataURL(t *testing.T) {
	part, err := imagePart(context.Background(), http.DefaultClient, "data:image/webp;base64,aGVsbG8=")
	require.NoError(t, err)

	blob, ok := part.(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/webp", blob.MIMEType)
	assert.Equal(t, []byte("hello"), blob.Data)
}

func TestTextOf(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Batch No: "), genai.Text("B123")}}},
		},
	}
	assert.Equal(t, "Batch No: B123", textOf(resp))
	assert.Equal(t, "", textOf(nil))
	assert.Equal(t, "", textOf(&genai.GenerateContentResponse{}))
}
