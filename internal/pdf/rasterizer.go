// Package pdf turns bill PDFs into one image per page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"rxscan/internal/domain"
)

// Rasterizer implements port.PDFRasterizer for scanned PDFs: each page's
// largest embedded image is taken as the page image.
type Rasterizer struct {
	logger *zap.Logger
}

// NewRasterizer creates a Rasterizer.
func NewRasterizer(logger *zap.Logger) *Rasterizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rasterizer{logger: logger}
}

type pageImage struct {
	ext  string
	area int
	data []byte
}

func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: counting pages: %v", domain.ErrPDFConversionFailed, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrPDFConversionFailed)
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages := make(map[int]pageImage)
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, img); err != nil {
			return fmt.Errorf("reading image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		area := img.Width * img.Height
		if cur, ok := pages[img.PageNr]; !ok || area > cur.area {
			pages[img.PageNr] = pageImage{ext: img.FileType, area: area, data: buf.Bytes()}
		}
		return nil
	}
	if err := api.ExtractImages(f, nil, digest, conf); err != nil {
		return nil, fmt.Errorf("%w: extracting images: %v", domain.ErrPDFConversionFailed, err)
	}

	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	if len(nums) < pageCount {
		r.logger.Warn("pdf pages without an image were skipped",
			zap.String("file", filepath.Base(pdfPath)),
			zap.Int("pages", pageCount),
			zap.Int("with_image", len(nums)))
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%w: no page images found", domain.ErrPDFConversionFailed)
	}

	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	out := make([]string, 0, len(nums))
	for _, n := range nums {
		img := pages[n]
		ext := img.ext
		if ext == "" {
			ext = "png"
		}
		path := filepath.Join(outDir, fmt.Sprintf("page-%03d.%s", n, ext))
		if err := os.WriteFile(path, img.data, 0o600); err != nil {
			return nil, fmt.Errorf("writing page %d: %w", n, err)
		}
		out = append(out, path)
	}
	return out, nil
}
