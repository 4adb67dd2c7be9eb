package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/domain"
	"rxscan/internal/export"
)

func writeRows(t *testing.T, recs []domain.ScanRecord) [][]string {
	t.Helper()
	var buf bytes.Buffer
	w := export.NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRecords(recs))
	w.Flush()
	require.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteHeader(t *testing.T) {
	rows := writeRows(t, nil)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 20)
	assert.Equal(t, "Scan ID", rows[0][0])
	assert.Equal(t, "Created At", rows[0][19])
}

func TestWriteRecords_Product(t *testing.T) {
	data, _ := json.Marshal(domain.AggregatedResult{
		"BNo":  {"AB123", "AB128"},
		"MfgD": {"01/2024"},
		"ExpD": {"12/2026"},
		"MRP":  nil,
	})
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := writeRows(t, []domain.ScanRecord{{
		ID:               uuid.New(),
		DocumentType:     domain.DocumentTypeProduct,
		OriginalFilename: "label.jpg",
		Data:             data,
		Attempts:         3,
		SamplesUsed:      2,
		CreatedAt:        created,
	}})

	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "product", row[1])
	assert.Equal(t, "3", row[4])
	assert.Equal(t, "2", row[5])
	assert.Equal(t, "AB123; AB128", row[6])
	assert.Equal(t, "01/2024", row[7])
	assert.Equal(t, "12/2026", row[8])
	assert.Empty(t, row[9])
	assert.Empty(t, row[10])
	assert.Equal(t, created.Format(time.RFC3339), row[19])
}

func TestWriteRecords_Bill(t *testing.T) {
	data := []byte(`{"bill_details":{"bill_number":"B-42","bill_date":"01/15/2025","drawing_party":"Medico","total_amount":"450.00"},
		"products":[{"product_name":"Dolo 650","batch_number":"X1"},{"product_name":"Azee 500","batch_number":"Z9"}]}`)
	rows := writeRows(t, []domain.ScanRecord{{
		ID:           uuid.New(),
		DocumentType: domain.DocumentTypeBill,
		Data:         data,
	}})

	row := rows[1]
	assert.Equal(t, "B-42", row[10])
	assert.Equal(t, "01/15/2025", row[11])
	assert.Equal(t, "Medico", row[12])
	assert.Equal(t, "450.00", row[13])
	assert.Equal(t, "2", row[14])
	assert.Empty(t, row[6])
}

func TestWriteRecords_Prescription(t *testing.T) {
	name := "John Doe"
	data, _ := json.Marshal(domain.Prescription{
		PatientName: &name,
		Medications: []domain.Medication{{Name: "Amoxicillin"}},
	})
	rows := writeRows(t, []domain.ScanRecord{{
		ID:           uuid.New(),
		DocumentType: domain.DocumentTypePrescription,
		Data:         data,
	}})

	row := rows[1]
	assert.Equal(t, "John Doe", row[15])
	assert.Empty(t, row[16])
	assert.Equal(t, "1", row[18])
}

func TestWriteRecords_MalformedData(t *testing.T) {
	rows := writeRows(t, []domain.ScanRecord{{
		ID:               uuid.New(),
		DocumentType:     domain.DocumentTypeBill,
		OriginalFilename: "bill.pdf",
		Data:             []byte(`not json`),
	}})

	row := rows[1]
	assert.Equal(t, "bill.pdf", row[2])
	for i := 6; i < 19; i++ {
		assert.Empty(t, row[i], "column %d", i)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Bills March", "Bills_March"},
		{"special chars", "FY 2024-25 / Q3 (Oct–Dec)", "FY_2024-25_Q3_Oct_Dec"},
		{"unicode", "दवा Bills", "Bills"},
		{"hyphens and underscores preserved", "bill-scan_2025", "bill-scan_2025"},
		{"consecutive underscores collapsed", "test___scans", "test_scans"},
		{"leading/trailing cleaned", "  hello  ", "hello"},
		{
			"long name truncated",
			"abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-extra",
			"abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrstuvwxyz-abcdefghijklmnopqrs",
		},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, export.SanitizeFilename(tt.input))
		})
	}
}

func TestBuildFilename(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	assert.Equal(t, "bill_scans_"+today+".csv", export.BuildFilename("bill scans", "csv"))
	assert.Equal(t, "scans_"+today+".xlsx", export.BuildFilename("///", "xlsx"))
}
