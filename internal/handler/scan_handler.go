package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rxscan/internal/domain"
	"rxscan/internal/export"
	"rxscan/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ScanHandler handles scanning and scan record endpoints.
type ScanHandler struct {
	scanService service.ScanService
	maxUpload   int64
}

// NewScanHandler creates a new ScanHandler. maxUploadMB bounds how much of an
// uploaded file is read.
func NewScanHandler(scanService service.ScanService, maxUploadMB int64) *ScanHandler {
	return &ScanHandler{scanService: scanService, maxUpload: maxUploadMB * 1024 * 1024}
}

// scanRequest is the JSON form of a scan request.
type scanRequest struct {
	ImageURL string `json:"image_url"`
	Filename string `json:"filename"`
}

// scanInput reads a scan request: a multipart "file" field, an "image_url"
// form field, or a JSON body carrying image_url.
func (h *ScanHandler) scanInput(c *gin.Context) (service.ScanInput, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return service.ScanInput{}, fmt.Errorf("%w: %v", domain.ErrInvalidImageReference, err)
		}
		if req.ImageURL == "" {
			return service.ScanInput{}, domain.ErrMissingScanInput
		}
		return service.ScanInput{ImageURL: req.ImageURL, Filename: req.Filename}, nil
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if ref := c.PostForm("image_url"); ref != "" {
			return service.ScanInput{ImageURL: ref}, nil
		}
		return service.ScanInput{}, domain.ErrMissingScanInput
	}
	defer func() { _ = file.Close() }()

	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return service.ScanInput{}, domain.ErrFileTooLarge
	}
	var r io.Reader = file
	if h.maxUpload > 0 {
		r = io.LimitReader(file, h.maxUpload+1)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return service.ScanInput{}, fmt.Errorf("reading upload: %w", err)
	}
	return service.ScanInput{Filename: header.Filename, Data: buf.Bytes()}, nil
}

// ScanProduct handles POST /api/v1/scans/product
func (h *ScanHandler) ScanProduct(c *gin.Context) {
	input, err := h.scanInput(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	rec, err := h.scanService.ScanProduct(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}

// ScanBill handles POST /api/v1/scans/bill
// A PDF yields one record per page.
func (h *ScanHandler) ScanBill(c *gin.Context) {
	input, err := h.scanInput(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	recs, err := h.scanService.ScanBill(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, recs)
}

// ScanPrescription handles POST /api/v1/scans/prescription
func (h *ScanHandler) ScanPrescription(c *gin.Context) {
	input, err := h.scanInput(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	rec, err := h.scanService.ScanPrescription(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}

// parseFilter reads type, date (YYYY-MM-DD) and q query parameters.
func parseFilter(c *gin.Context) (domain.ScanFilter, error) {
	var filter domain.ScanFilter
	if t := c.Query("type"); t != "" {
		filter.DocumentType = domain.DocumentType(t)
		if !filter.DocumentType.Valid() {
			return filter, domain.ErrInvalidDocumentType
		}
	}
	if d := c.Query("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return filter, errInvalidDate
		}
		filter.Day = &day
	}
	filter.Search = strings.TrimSpace(c.Query("q"))
	return filter, nil
}

var errInvalidDate = errors.New("invalid date")

// List handles GET /api/v1/scans
func (h *ScanHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		if errors.Is(err, errInvalidDate) {
			RespondError(c, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		HandleError(c, err)
		return
	}
	filter.Offset, filter.Limit = parsePagination(c)

	recs, total, err := h.scanService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, recs, PagMeta{Total: total, Offset: filter.Offset, Limit: filter.Limit})
}

// GetByID handles GET /api/v1/scans/:id
func (h *ScanHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.scanService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// UpdatePrescription handles PUT /api/v1/scans/:id/prescription
func (h *ScanHandler) UpdatePrescription(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var p domain.Prescription
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	rec, err := h.scanService.UpdatePrescription(c.Request.Context(), id, p)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Delete handles DELETE /api/v1/scans/:id
func (h *ScanHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.scanService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "scan deleted"})
}

// ExportBill handles GET /api/v1/scans/:id/export
func (h *ScanHandler) ExportBill(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, err := h.scanService.ExportBill(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("bill_"+id.String(), "xlsx")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportCSV handles GET /api/v1/scans/export
// It accepts the same filters as List and streams every matching record.
func (h *ScanHandler) ExportCSV(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		if errors.Is(err, errInvalidDate) {
			RespondError(c, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		HandleError(c, err)
		return
	}

	name := "scans"
	if filter.DocumentType != "" {
		name = string(filter.DocumentType) + "_scans"
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.BuildFilename(name, "csv")))
	c.Status(http.StatusOK)

	if err := h.scanService.ExportCSV(c.Request.Context(), filter, c.Writer); err != nil {
		// Headers are already sent; record the failure for the request log.
		_ = c.Error(err)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan ID")
		return uuid.Nil, false
	}
	return id, true
}
