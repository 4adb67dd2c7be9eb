package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrInvalidDocumentType   = errors.New("invalid document type")
	ErrInvalidImageReference = errors.New("invalid image reference")
	ErrExtractionFailed      = errors.New("no usable response from the completion service")
	ErrNotAPrescription      = errors.New("record is not a prescription")
	ErrNotABill              = errors.New("record is not a bill")
	ErrPDFConversionFailed   = errors.New("pdf could not be converted to page images")
	ErrMissingScanInput      = errors.New("a file or an image reference is required")
)
