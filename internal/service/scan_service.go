package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rxscan/internal/completion"
	"rxscan/internal/config"
	"rxscan/internal/domain"
	"rxscan/internal/export"
	"rxscan/internal/extract"
	"rxscan/internal/metrics"
	"rxscan/internal/port"
	"rxscan/internal/reconcile"
)

// rawTextSeparator joins the raw samples kept on a record.
const rawTextSeparator = "\n\n---\n\n"

// ScanInput is either an uploaded file (Data plus Filename) or a reference
// to an image that is already reachable: an http(s) URL or a data: URL.
type ScanInput struct {
	Filename string
	Data     []byte
	ImageURL string
}

// ScanService defines the scanning contract.
type ScanService interface {
	ScanProduct(ctx context.Context, input ScanInput) (*domain.ScanRecord, error)
	ScanBill(ctx context.Context, input ScanInput) ([]domain.ScanRecord, error)
	ScanPrescription(ctx context.Context, input ScanInput) (*domain.ScanRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error)
	List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error)
	UpdatePrescription(ctx context.Context, id uuid.UUID, p domain.Prescription) (*domain.ScanRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportBill(ctx context.Context, id uuid.UUID) ([]byte, error)
	ExportCSV(ctx context.Context, filter domain.ScanFilter, w io.Writer) error
}

type scanService struct {
	repo       port.ScanRepository
	host       port.ImageHost
	rasterizer port.PDFRasterizer
	client     port.CompletionClient
	aggregator *reconcile.Aggregator
	profiles   Profiles
	cfg        *config.ScanConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewScanService creates a new ScanService implementation.
func NewScanService(
	repo port.ScanRepository,
	host port.ImageHost,
	rasterizer port.PDFRasterizer,
	client port.CompletionClient,
	cfg *config.ScanConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &scanService{
		repo:       repo,
		host:       host,
		rasterizer: rasterizer,
		client:     client,
		aggregator: reconcile.NewAggregator(logger, m),
		profiles:   NewProfiles(cfg),
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// image is a reference the completion service can read plus what is needed
// to record and later remove it.
type image struct {
	ref      string
	id       string
	filename string
}

func (s *scanService) ScanProduct(ctx context.Context, input ScanInput) (rec *domain.ScanRecord, err error) {
	defer func() { s.metrics.ObserveScan(string(domain.DocumentTypeProduct), err == nil) }()

	recordID := uuid.New()
	img, err := s.prepareImage(ctx, domain.DocumentTypeProduct, recordID, input)
	if err != nil {
		return nil, err
	}

	p := s.profiles.Product
	samples, err := s.aggregator.Collect(ctx, p.Type, p.Attempts, s.attempt(p, p.Prompt, img.ref))
	if err != nil {
		return nil, err
	}

	texts := reconcile.Texts(samples)
	records := make([]extract.Record, len(texts))
	for i, text := range texts {
		records[i] = extract.Extract(text, p.Table)
	}
	result := reconcile.UnionFields(records, p.Table)

	return s.persist(ctx, recordID, domain.DocumentTypeProduct, img, result, strings.Join(texts, rawTextSeparator), p.Attempts, len(texts))
}

func (s *scanService) ScanBill(ctx context.Context, input ScanInput) (recs []domain.ScanRecord, err error) {
	defer func() { s.metrics.ObserveScan(string(domain.DocumentTypeBill), err == nil) }()

	images, err := s.prepareBillImages(ctx, input)
	if err != nil {
		return nil, err
	}

	recs = make([]domain.ScanRecord, 0, len(images))
	for _, page := range images {
		rec, err := s.scanBillImage(ctx, page.recordID, page.image)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (s *scanService) scanBillImage(ctx context.Context, recordID uuid.UUID, img image) (*domain.ScanRecord, error) {
	ext := s.profiles.BillExtraction
	samples, err := s.aggregator.Collect(ctx, ext.Type, ext.Attempts, s.attempt(ext, ext.Prompt, img.ref))
	if err != nil {
		return nil, err
	}
	combined := strings.Join(reconcile.Texts(samples), billTextSeparator)

	proc := s.profiles.BillProcessing
	prompt := fmt.Sprintf("%s\n\nBill Text: %s", proc.Prompt, combined)
	processed, err := s.aggregator.Collect(ctx, proc.Type, proc.Attempts, s.attempt(proc, prompt, ""))
	if err != nil {
		return nil, err
	}

	docs := make([]domain.BillDocument, 0, len(processed))
	for _, sample := range processed {
		doc, err := reconcile.ParseBillDocument(sample.Text)
		if err != nil {
			s.logger.Warn("dropping bill sample",
				zap.String("scan_id", recordID.String()),
				zap.Int("attempt", sample.Attempt),
				zap.Error(err))
			continue
		}
		docs = append(docs, *doc)
	}
	bill := reconcile.MergeBills(docs)

	return s.persist(ctx, recordID, domain.DocumentTypeBill, &img, bill, combined, proc.Attempts, len(docs))
}

func (s *scanService) ScanPrescription(ctx context.Context, input ScanInput) (rec *domain.ScanRecord, err error) {
	defer func() { s.metrics.ObserveScan(string(domain.DocumentTypePrescription), err == nil) }()

	recordID := uuid.New()
	img, err := s.prepareImage(ctx, domain.DocumentTypePrescription, recordID, input)
	if err != nil {
		return nil, err
	}

	p := s.profiles.Prescription
	samples, err := s.aggregator.Collect(ctx, p.Type, p.Attempts, s.attempt(p, p.Prompt, img.ref))
	if err != nil {
		return nil, err
	}

	texts := reconcile.Texts(samples)
	parsed := make([]extract.PrescriptionSample, len(texts))
	for i, text := range texts {
		parsed[i] = extract.ParsePrescription(text)
	}
	result := reconcile.MajorityPrescription(parsed)

	return s.persist(ctx, recordID, domain.DocumentTypePrescription, img, result, strings.Join(texts, rawTextSeparator), p.Attempts, len(texts))
}

func (s *scanService) attempt(p DocumentProfile, prompt, imageRef string) reconcile.Attempt {
	return func(ctx context.Context, _ int) (string, error) {
		return s.client.Complete(ctx, port.CompletionRequest{
			Prompt:      prompt,
			System:      p.System,
			ImageURL:    imageRef,
			Model:       p.Model,
			Temperature: s.cfg.Temperature,
			MaxTokens:   s.cfg.MaxTokens,
		})
	}
}

// persist stores the reconciled data. samples is the number of responses the
// data was reconciled from.
func (s *scanService) persist(
	ctx context.Context,
	id uuid.UUID,
	docType domain.DocumentType,
	img *image,
	data any,
	rawText string,
	attempts, samples int,
) (*domain.ScanRecord, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s data: %w", docType, err)
	}

	rec := &domain.ScanRecord{
		ID:               id,
		DocumentType:     docType,
		OriginalFilename: img.filename,
		ImageURL:         img.ref,
		ImageID:          img.id,
		RawText:          rawText,
		Data:             payload,
		Attempts:         attempts,
		SamplesUsed:      samples,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("persisting scan failed", zap.String("scan_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("persisting scan: %w", err)
	}

	s.logger.Info("scan stored",
		zap.String("scan_id", id.String()),
		zap.String("doc_type", string(docType)),
		zap.Int("samples", rec.SamplesUsed))
	return rec, nil
}

// prepareImage validates the input and, for uploads, publishes the bytes on
// the image host.
func (s *scanService) prepareImage(
	ctx context.Context,
	docType domain.DocumentType,
	id uuid.UUID,
	input ScanInput,
) (*image, error) {
	if input.ImageURL != "" {
		if err := validateImageRef(input.ImageURL); err != nil {
			return nil, err
		}
		name := input.Filename
		if name == "" && !completion.IsDataURL(input.ImageURL) {
			name = filepath.Base(input.ImageURL)
		}
		return &image{ref: input.ImageURL, filename: name}, nil
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrMissingScanInput
	}

	fileType, err := s.validateUpload(input)
	if err != nil {
		return nil, err
	}
	if fileType == domain.FileTypePDF {
		return nil, domain.ErrUnsupportedFileType
	}

	key := fmt.Sprintf("scans/%s/%s/%s", docType, id, filepath.Base(input.Filename))
	return s.upload(ctx, key, input.Filename, fileType, input.Data)
}

func (s *scanService) upload(ctx context.Context, key, filename string, fileType domain.FileType, data []byte) (*image, error) {
	contentType := domain.AllowedFileTypes[fileType]
	s.logger.Info("uploading image",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))

	hosted, err := s.host.Upload(ctx, port.HostInput{
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		s.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return nil, domain.ErrUploadFailed
	}
	return &image{ref: hosted.URL, id: hosted.ID, filename: filename}, nil
}

// validateUpload checks the extension, the size and the sniffed content type.
// The returned type is the sniffed one.
func (s *scanService) validateUpload(input ScanInput) (domain.FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return "", domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxUploadSizeMB * 1024 * 1024
	if maxBytes > 0 && int64(len(input.Data)) > maxBytes {
		return "", domain.ErrFileTooLarge
	}

	head := input.Data
	if len(head) > 512 {
		head = head[:512]
	}
	fileType, ok := domain.AllowedContentTypes[http.DetectContentType(head)]
	if !ok {
		return "", domain.ErrUnsupportedFileType
	}
	return fileType, nil
}

func validateImageRef(ref string) error {
	if completion.IsDataURL(ref) {
		if _, err := completion.ParseDataURL(ref); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidImageReference, err)
		}
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return domain.ErrInvalidImageReference
	}
	switch u.Scheme {
	case "http", "https":
		return nil
	}
	return domain.ErrInvalidImageReference
}

type pageImage struct {
	recordID uuid.UUID
	image    image
}

// prepareBillImages returns one image per bill: the page images of an
// uploaded PDF, or the single uploaded or referenced image.
func (s *scanService) prepareBillImages(ctx context.Context, input ScanInput) ([]pageImage, error) {
	if input.ImageURL == "" && len(input.Data) > 0 {
		fileType, err := s.validateUpload(input)
		if err != nil {
			return nil, err
		}
		if fileType == domain.FileTypePDF {
			return s.preparePDF(ctx, input)
		}
	}

	id := uuid.New()
	img, err := s.prepareImage(ctx, domain.DocumentTypeBill, id, input)
	if err != nil {
		return nil, err
	}
	return []pageImage{{recordID: id, image: *img}}, nil
}

// preparePDF splits an uploaded PDF into page images and publishes each one.
func (s *scanService) preparePDF(ctx context.Context, input ScanInput) ([]pageImage, error) {
	dir, err := os.MkdirTemp("", "rxscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, input.Data, 0o600); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	pages, err := s.rasterizer.Rasterize(ctx, pdfPath, filepath.Join(dir, "pages"))
	if err != nil {
		return nil, err
	}

	out := make([]pageImage, 0, len(pages))
	for i, pagePath := range pages {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(pagePath), "."))
		fileType, ok := domain.AllowedExtensions[ext]
		if !ok || fileType == domain.FileTypePDF {
			s.logger.Warn("skipping page with unsupported image type",
				zap.Int("page", i+1), zap.String("ext", ext))
			continue
		}
		data, err := os.ReadFile(pagePath)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i+1, err)
		}

		id := uuid.New()
		name := fmt.Sprintf("%s#page=%d", input.Filename, i+1)
		key := fmt.Sprintf("scans/%s/%s/%s", domain.DocumentTypeBill, id, filepath.Base(pagePath))
		img, err := s.upload(ctx, key, name, fileType, data)
		if err != nil {
			return nil, err
		}
		out = append(out, pageImage{recordID: id, image: *img})
	}
	if len(out) == 0 {
		return nil, domain.ErrPDFConversionFailed
	}
	return out, nil
}

func (s *scanService) Get(ctx context.Context, id uuid.UUID) (*domain.ScanRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *scanService) List(ctx context.Context, filter domain.ScanFilter) ([]domain.ScanRecord, int, error) {
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return nil, 0, domain.ErrInvalidDocumentType
	}
	return s.repo.List(ctx, filter)
}

func (s *scanService) UpdatePrescription(ctx context.Context, id uuid.UUID, p domain.Prescription) (*domain.ScanRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.DocumentType != domain.DocumentTypePrescription {
		return nil, domain.ErrNotAPrescription
	}

	if p.Medications == nil {
		p.Medications = []domain.Medication{}
	}
	if p.AdditionalNotes == nil {
		p.AdditionalNotes = []string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding prescription: %w", err)
	}
	if err := s.repo.UpdateData(ctx, id, data); err != nil {
		return nil, err
	}

	s.logger.Info("prescription updated", zap.String("scan_id", id.String()))
	rec.Data = data
	rec.UpdatedAt = time.Now().UTC()
	return rec, nil
}

func (s *scanService) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if rec.ImageID != "" {
		if err := s.host.Delete(ctx, rec.ImageID); err != nil {
			s.logger.Error("deleting hosted image failed", zap.String("image_id", rec.ImageID), zap.Error(err))
			return fmt.Errorf("deleting hosted image: %w", err)
		}
	}

	s.logger.Info("deleting scan", zap.String("scan_id", id.String()))
	return s.repo.Delete(ctx, id)
}

func (s *scanService) ExportBill(ctx context.Context, id uuid.UUID) ([]byte, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return export.BillWorkbook(rec)
}

// exportBatchSize is the page size used to walk a listing during CSV export.
const exportBatchSize = 500

func (s *scanService) ExportCSV(ctx context.Context, filter domain.ScanFilter, w io.Writer) error {
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return domain.ErrInvalidDocumentType
	}
	if _, err := w.Write(export.BOM); err != nil {
		return err
	}

	cw := export.NewWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}

	filter.Offset = 0
	filter.Limit = exportBatchSize
	for {
		recs, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return err
		}
		if err := cw.WriteRecords(recs); err != nil {
			return err
		}
		filter.Offset += len(recs)
		if len(recs) == 0 || filter.Offset >= total {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}
