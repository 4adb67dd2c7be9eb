package firestore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/domain"
)

func TestDocRoundTrip(t *testing.T) {
	rec := &domain.ScanRecord{
		ID:               uuid.New(),
		DocumentType:     domain.DocumentTypePrescription,
		OriginalFilename: "rx.jpg",
		ImageURL:         "https://img/rx.jpg",
		ImageID:          "scans/prescription/rx.jpg",
		RawText:          "Patient's full name: Jane Roe",
		Data:             json.RawMessage(`{"patient_name":"Jane Roe"}`),
		Attempts:         3,
		SamplesUsed:      2,
		CreatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	got, err := fromDoc(rec.ID.String(), toDoc(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestToDoc_EmptyData(t *testing.T) {
	d := toDoc(&domain.ScanRecord{ID: uuid.New()})
	assert.Equal(t, "{}", d.Data)
}

func TestFromDoc_BadID(t *testing.T) {
	_, err := fromDoc("not-a-uuid", scanDoc{})
	assert.Error(t, err)
}

func TestMatchesSearch(t *testing.T) {
	d := scanDoc{RawText: "MRP: Rs. 45", OriginalFilename: "Label.JPG", Data: `{"BNo":["B123"]}`}
	assert.True(t, matchesSearch(d, ""))
	assert.True(t, matchesSearch(d, "mrp"))
	assert.True(t, matchesSearch(d, "label.jpg"))
	assert.True(t, matchesSearch(d, "b123"))
	assert.False(t, matchesSearch(d, "paracetamol"))
}

func TestPage(t *testing.T) {
	recs := make([]domain.ScanRecord, 5)
	assert.Len(t, page(recs, 0, 2), 2)
	assert.Len(t, page(recs, 4, 2), 1)
	assert.Len(t, page(recs, 0, 0), 5)
	assert.Empty(t, page(recs, 10, 2))
}
