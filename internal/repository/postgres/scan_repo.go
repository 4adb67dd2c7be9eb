package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rxscan/internal/domain"
	"rxscan/internal/port"
)

type scanRepo struct {
	db *sqlx.DB
}

// NewScanRepo creates a new PostgreSQL-backed ScanRepository.
func NewScanRepo(db *sqlx.DB) port.ScanRepository {
	return &scanRepo{db: db}
}

func (r *scanRepo) Create(ctx context.Context, rec *domain.ScanRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if len(rec.Data) == 0 {
		rec.Data = json.RawMessage(`{}`)
	}

	query := `INSERT INTO scan_records (
		id, doc_type, original_filename, image_url, image_id,
		raw_text, data, attempts, samples_used, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11
	)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DocumentType, rec.OriginalFilename, rec.ImageURL, rec.ImageID,
		rec.RawText, []byte(rec.Data), rec.Attempts, rec.SamplesUsed, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scanRepo.Create: %w", err)
	}
	return nil
}

func (r *scanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	var rec domain.ScanRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM scan_records WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *scanRepo) List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error) {
	where, args := buildWhere(filter)

	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scan_records"+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("scanRepo.List count: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf("SELECT * FROM scan_records%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", where, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	var recs []domain.ScanRecord
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("scanRepo.List: %w", err)
	}
	return recs, total, nil
}

// buildWhere renders the filter as a WHERE clause with positional args.
func buildWhere(filter domain.ScanFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conds = append(conds, fmt.Sprintf("doc_type = $%d", len(args)))
	}
	if filter.Day != nil {
		start := time.Date(filter.Day.Year(), filter.Day.Month(), filter.Day.Day(), 0, 0, 0, 0, filter.Day.Location())
		args = append(args, start, start.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("created_at >= $%d AND created_at < $%d", len(args)-1, len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(raw_text ILIKE $%d OR original_filename ILIKE $%d OR data::text ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *scanRepo) UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE scan_records SET data = $1, updated_at = $2 WHERE id = $3",
		[]byte(data), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("scanRepo.UpdateData: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scan_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("scanRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
