// Package firestore stores scan records as Firestore documents.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rxscan/internal/domain"
	"rxscan/internal/port"
)

// scanDoc is the stored shape of a ScanRecord. Data is kept as its JSON
// text so bills and prescriptions round-trip unchanged.
type scanDoc struct {
	DocumentType     string    `firestore:"doc_type"`
	OriginalFilename string    `firestore:"original_filename"`
	ImageURL         string    `firestore:"image_url"`
	ImageID          string    `firestore:"image_id"`
	RawText          string    `firestore:"raw_text"`
	Data             string    `firestore:"data"`
	Attempts         int       `firestore:"attempts"`
	SamplesUsed      int       `firestore:"samples_used"`
	CreatedAt        time.Time `firestore:"created_at"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

func toDoc(rec *domain.ScanRecord) scanDoc {
	data := string(rec.Data)
	if data == "" {
		data = "{}"
	}
	return scanDoc{
		DocumentType:     string(rec.DocumentType),
		OriginalFilename: rec.OriginalFilename,
		ImageURL:         rec.ImageURL,
		ImageID:          rec.ImageID,
		RawText:          rec.RawText,
		Data:             data,
		Attempts:         rec.Attempts,
		SamplesUsed:      rec.SamplesUsed,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func fromDoc(id string, d scanDoc) (*domain.ScanRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing document id %q: %w", id, err)
	}
	return &domain.ScanRecord{
		ID:               uid,
		DocumentType:     domain.DocumentType(d.DocumentType),
		OriginalFilename: d.OriginalFilename,
		ImageURL:         d.ImageURL,
		ImageID:          d.ImageID,
		RawText:          d.RawText,
		Data:             json.RawMessage(d.Data),
		Attempts:         d.Attempts,
		SamplesUsed:      d.SamplesUsed,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

// matchesSearch is the case-insensitive substring match Firestore cannot do
// server side.
func matchesSearch(d scanDoc, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, field := range []string{d.RawText, d.OriginalFilename, d.Data} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

type scanRepo struct {
	col *firestore.CollectionRef
}

// NewScanRepo creates a Firestore-backed ScanRepository over collection.
func NewScanRepo(client *firestore.Client, collection string) port.ScanRepository {
	return &scanRepo{col: client.Collection(collection)}
}

func (r *scanRepo) Create(ctx context.Context, rec *domain.ScanRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if _, err := r.col.Doc(rec.ID.String()).Create(ctx, toDoc(rec)); err != nil {
		return fmt.Errorf("firestore scanRepo.Create: %w", err)
	}
	return nil
}

func (r *scanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	snap, err := r.col.Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore scanRepo.GetByID: %w", err)
	}
	var d scanDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("firestore scanRepo.GetByID decode: %w", err)
	}
	return fromDoc(snap.Ref.ID, d)
}

// List applies type and day filters in the query and search and paging in
// memory.
func (r *scanRepo) List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error) {
	q := r.col.Query
	if filter.DocumentType != "" {
		q = q.Where("doc_type", "==", string(filter.DocumentType))
	}
	if filter.Day != nil {
		start := time.Date(filter.Day.Year(), filter.Day.Month(), filter.Day.Day(), 0, 0, 0, 0, filter.Day.Location())
		q = q.Where("created_at", ">=", start).Where("created_at", "<", start.AddDate(0, 0, 1))
	}
	q = q.OrderBy("created_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var matched []domain.ScanRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("firestore scanRepo.List: %w", err)
		}
		var d scanDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, 0, fmt.Errorf("firestore scanRepo.List decode: %w", err)
		}
		if !matchesSearch(d, strings.TrimSpace(filter.Search)) {
			continue
		}
		rec, err := fromDoc(snap.Ref.ID, d)
		if err != nil {
			return nil, 0, err
		}
		matched = append(matched, *rec)
	}

	return page(matched, filter.Offset, filter.Limit), len(matched), nil
}

func page(recs []domain.ScanRecord, offset, limit int) []domain.ScanRecord {
	if offset >= len(recs) {
		return []domain.ScanRecord{}
	}
	end := len(recs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return recs[offset:end]
}

func (r *scanRepo) UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error {
	_, err := r.col.Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "data", Value: string(data)},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore scanRepo.UpdateData: %w", err)
	}
	return nil
}

func (r *scanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.col.Doc(id.String()).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore scanRepo.Delete: %w", err)
	}
	return nil
}
