package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"rxscan/internal/domain"
	"rxscan/internal/extract"
)

// ErrMalformedStructuredResponse marks a response that should have held a
// bill JSON document but did not.
var ErrMalformedStructuredResponse = errors.New("malformed structured response")

// billSchema is deliberately loose: it rejects non-objects and wrongly typed
// top-level members but lets line item attributes be strings or numbers.
var billSchema = mustCompileSchema(`{
	"type": "object",
	"properties": {
		"bill_details": {"type": ["object", "null"]},
		"products": {
			"type": ["array", "null"],
			"items": {"type": "object"}
		}
	},
	"anyOf": [
		{"required": ["bill_details"]},
		{"required": ["products"]}
	]
}`)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bill.json", bytes.NewReader([]byte(src))); err != nil {
		panic(fmt.Sprintf("add bill schema: %v", err))
	}
	return compiler.MustCompile("bill.json")
}

// ParseBillDocument isolates the JSON document in a model response,
// validates its shape and decodes it.
func ParseBillDocument(text string) (*domain.BillDocument, error) {
	raw := extract.JSONBlock(text)

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredResponse, err)
	}
	if err := billSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredResponse, err)
	}

	var doc domain.BillDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructuredResponse, err)
	}
	if doc.BillDetails == nil {
		doc.BillDetails = domain.BillDetails{}
	}
	if doc.Products == nil {
		doc.Products = []domain.LineItem{}
	}
	return &doc, nil
}

// MergeBills combines parsed bill documents. bill_details is taken whole
// from the first document and replaced only by a later one with strictly
// more populated keys. Products are concatenated and deduplicated on
// (product_name, batch_number); the more populated item wins, the first
// seen wins ties, and order follows each key's first occurrence.
func MergeBills(docs []domain.BillDocument) domain.BillDocument {
	if len(docs) == 0 {
		return domain.EmptyBill()
	}

	merged := domain.EmptyBill()
	if docs[0].BillDetails != nil {
		merged.BillDetails = docs[0].BillDetails
	}
	for _, doc := range docs[1:] {
		if doc.BillDetails.PopulatedKeys() > merged.BillDetails.PopulatedKeys() {
			merged.BillDetails = doc.BillDetails
		}
	}

	index := make(map[string]int)
	for _, doc := range docs {
		for _, item := range doc.Products {
			key := item.Key()
			pos, ok := index[key]
			if !ok {
				index[key] = len(merged.Products)
				merged.Products = append(merged.Products, item)
				continue
			}
			if item.PopulatedFields() > merged.Products[pos].PopulatedFields() {
				merged.Products[pos] = item
			}
		}
	}
	return merged
}
