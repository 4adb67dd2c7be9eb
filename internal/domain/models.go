package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregatedResult maps a field name to the distinct values observed across
// samples, in first-observed order. A field nobody observed maps to nil.
type AggregatedResult map[string][]string

// First returns the first observed value for field, or nil.
func (r AggregatedResult) First(field string) *string {
	values := r[field]
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// LineItem is one product row on a bill.
type LineItem struct {
	ProductName *Text  `json:"product_name"`
	Quantity    Number `json:"quantity"`
	BatchNumber *Text  `json:"batch_number"`
	MRP         Number `json:"mrp"`
	Rate        Number `json:"rate"`
	Amount      Number `json:"amount"`
	ExpDate     *Text  `json:"exp_date"`
}

// Key returns the deduplication key (product_name, batch_number).
func (li LineItem) Key() string {
	return li.ProductName.String() + "\x00" + li.BatchNumber.String()
}

// PopulatedFields counts the attributes carrying a value.
func (li LineItem) PopulatedFields() int {
	n := 0
	for _, t := range []*Text{li.ProductName, li.BatchNumber, li.ExpDate} {
		if t.Populated() {
			n++
		}
	}
	for _, v := range []Number{li.Quantity, li.MRP, li.Rate, li.Amount} {
		if v.Populated() {
			n++
		}
	}
	return n
}

// BillDetails holds the scalar header fields of a bill.
type BillDetails map[string]any

// PopulatedKeys counts keys whose value is neither null nor a blank string.
func (d BillDetails) PopulatedKeys() int {
	n := 0
	for _, v := range d {
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				n++
			}
		default:
			n++
		}
	}
	return n
}

// BillDocument is one structured bill: header details plus ordered line items.
type BillDocument struct {
	BillDetails BillDetails `json:"bill_details"`
	Products    []LineItem  `json:"products"`
}

// EmptyBill returns a bill with non-nil, empty details and products.
func EmptyBill() BillDocument {
	return BillDocument{BillDetails: BillDetails{}, Products: []LineItem{}}
}

// Medication is one prescribed drug with its reconciled attributes.
type Medication struct {
	Name      string  `json:"name"`
	Dosage    *string `json:"dosage"`
	Frequency *string `json:"frequency"`
	Duration  *string `json:"duration"`
}

// Prescription is the reconciled content of a prescription scan.
type Prescription struct {
	PatientName      *string      `json:"patient_name"`
	PatientAge       *string      `json:"patient_age"`
	PatientGender    *string      `json:"patient_gender"`
	DoctorName       *string      `json:"doctor_name"`
	DoctorLicense    *string      `json:"doctor_license"`
	PrescriptionDate *string      `json:"prescription_date"`
	Medications      []Medication `json:"medications"`
	AdditionalNotes  []string     `json:"additional_notes"`
}

// ScanRecord is the persisted outcome of one scan. Data holds the
// type-specific payload: an AggregatedResult, a BillDocument or a Prescription.
type ScanRecord struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	DocumentType     DocumentType    `db:"doc_type" json:"document_type"`
	OriginalFilename string          `db:"original_filename" json:"original_filename"`
	ImageURL         string          `db:"image_url" json:"image_url"`
	ImageID          string          `db:"image_id" json:"image_id"`
	RawText          string          `db:"raw_text" json:"raw_text,omitempty"`
	Data             json.RawMessage `db:"data" json:"data"`
	Attempts         int             `db:"attempts" json:"attempts"`
	SamplesUsed      int             `db:"samples_used" json:"samples_used"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Bill decodes Data as a BillDocument.
func (r *ScanRecord) Bill() (*BillDocument, error) {
	if r.DocumentType != DocumentTypeBill {
		return nil, ErrNotABill
	}
	var doc BillDocument
	if err := json.Unmarshal(r.Data, &doc); err != nil {
		return nil, fmt.Errorf("decoding bill data: %w", err)
	}
	return &doc, nil
}

// Prescription decodes Data as a Prescription.
func (r *ScanRecord) Prescription() (*Prescription, error) {
	if r.DocumentType != DocumentTypePrescription {
		return nil, ErrNotAPrescription
	}
	var p Prescription
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return nil, fmt.Errorf("decoding prescription data: %w", err)
	}
	return &p, nil
}

// ScanFilter narrows a record listing.
type ScanFilter struct {
	DocumentType DocumentType
	Day          *time.Time
	Search       string
	Offset       int
	Limit        int
}
