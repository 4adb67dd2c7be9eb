package port

import "context"

// PDFRasterizer turns a PDF into one image file per page, written under
// outDir and returned in page order.
type PDFRasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}
