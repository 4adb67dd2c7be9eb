package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rxscan/internal/completion"
	"rxscan/internal/domain"
	"rxscan/internal/reconcile"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png, webp, gif"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrMissingScanInput):
		return http.StatusBadRequest, "MISSING_FILE", "a file or an image_url is required"
	case errors.Is(err, domain.ErrInvalidImageReference):
		return http.StatusBadRequest, "INVALID_IMAGE_URL", "image_url must be an http(s) or base64 data URL"
	case errors.Is(err, domain.ErrInvalidDocumentType):
		return http.StatusBadRequest, "INVALID_DOCUMENT_TYPE", "invalid document type; allowed: product, bill, prescription"
	case errors.Is(err, domain.ErrNotAPrescription):
		return http.StatusConflict, "NOT_A_PRESCRIPTION", "record is not a prescription"
	case errors.Is(err, domain.ErrNotABill):
		return http.StatusConflict, "NOT_A_BILL", "record is not a bill"
	case errors.Is(err, domain.ErrPDFConversionFailed):
		return http.StatusUnprocessableEntity, "PDF_CONVERSION_FAILED", "pdf pages could not be converted to images"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "image upload to storage failed"
	case providersUnavailable(err):
		return http.StatusServiceUnavailable, "COMPLETION_UNAVAILABLE", "completion providers are temporarily unavailable"
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusBadGateway, "EXTRACTION_FAILED", "no usable response from the completion service"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "the request timed out"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// providersUnavailable reports whether err, or every attempt of a failed
// round, was refused because all completion providers were unavailable.
func providersUnavailable(err error) bool {
	var failed *reconcile.AllAttemptsFailedError
	if !errors.As(err, &failed) {
		return errors.Is(err, completion.ErrAllProvidersUnavailable)
	}
	if len(failed.Causes) == 0 {
		return false
	}
	for _, cause := range failed.Causes {
		if !errors.Is(cause, completion.ErrAllProvidersUnavailable) {
			return false
		}
	}
	return true
}

// HandleError maps a domain error and sends the appropriate error response.
// Server-side failures are attached to the context for the request logger.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		_ = c.Error(err)
	}
	RespondError(c, status, code, msg)
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
