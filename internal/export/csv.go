package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rxscan/internal/domain"
	"rxscan/internal/extract"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Scan ID",
	"Document Type",
	"Original Filename",
	"Image URL",
	"Attempts",
	"Samples Used",
	"Batch Numbers",
	"Mfg Dates",
	"Expiry Dates",
	"MRP",
	"Bill Number",
	"Bill Date",
	"Drawing Party",
	"Total Amount",
	"Line Item Count",
	"Patient Name",
	"Doctor Name",
	"Prescription Date",
	"Medication Count",
	"Created At",
}

const (
	colBatch = iota + 6
	colMfg
	colExp
	colMRP
	colBillNumber
	colBillDate
	colDrawingParty
	colTotal
	colLineItems
	colPatient
	colDoctor
	colRxDate
	colMeds
	colCreatedAt
)

// Writer wraps csv.Writer for exporting scan records as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecords converts a batch of records to CSV rows and writes them.
func (w *Writer) WriteRecords(recs []domain.ScanRecord) error {
	for i := range recs {
		if err := w.csv.Write(recordToRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// recordToRow fills the metadata columns and the columns belonging to the
// record's document type. Data that fails to decode leaves its columns empty.
func recordToRow(rec *domain.ScanRecord) []string {
	row := make([]string, len(columns))

	row[0] = rec.ID.String()
	row[1] = string(rec.DocumentType)
	row[2] = rec.OriginalFilename
	row[3] = rec.ImageURL
	row[4] = strconv.Itoa(rec.Attempts)
	row[5] = strconv.Itoa(rec.SamplesUsed)
	row[colCreatedAt] = rec.CreatedAt.Format(time.RFC3339)

	switch rec.DocumentType {
	case domain.DocumentTypeProduct:
		var res domain.AggregatedResult
		if err := json.Unmarshal(rec.Data, &res); err != nil {
			return row
		}
		row[colBatch] = strings.Join(res[extract.FieldBatchNumber], "; ")
		row[colMfg] = strings.Join(res[extract.FieldMfgDate], "; ")
		row[colExp] = strings.Join(res[extract.FieldExpiryDate], "; ")
		row[colMRP] = strings.Join(res[extract.FieldMRP], "; ")

	case domain.DocumentTypeBill:
		bill, err := rec.Bill()
		if err != nil {
			return row
		}
		row[colBillNumber] = detailValue(bill.BillDetails["bill_number"])
		row[colBillDate] = detailValue(bill.BillDetails["bill_date"])
		row[colDrawingParty] = detailValue(bill.BillDetails["drawing_party"])
		row[colTotal] = detailValue(bill.BillDetails["total_amount"])
		row[colLineItems] = strconv.Itoa(len(bill.Products))

	case domain.DocumentTypePrescription:
		p, err := rec.Prescription()
		if err != nil {
			return row
		}
		row[colPatient] = deref(p.PatientName)
		row[colDoctor] = deref(p.DoctorName)
		row[colRxDate] = deref(p.PrescriptionDate)
		row[colMeds] = strconv.Itoa(len(p.Medications))
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized Content-Disposition filename of the form
// {name}_{YYYY-MM-DD}.{ext}.
func BuildFilename(name, ext string) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "scans"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, time.Now().Format("2006-01-02"), ext)
}
