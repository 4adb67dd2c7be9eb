package port

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"rxscan/internal/domain"
)

// ScanRepository is the document store for scan records.
type ScanRepository interface {
	Create(ctx context.Context, rec *domain.ScanRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error)
	List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error)
	UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}
