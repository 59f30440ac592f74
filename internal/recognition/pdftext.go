package recognition

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/pogo-pad/internal/pdf"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// PDFTextEngine reads the vector text layer of a PDF page instead of running
// OCR. Line boxes are scaled from page points onto the decoded page image.
type PDFTextEngine struct {
	page int
}

// NewPDFTextEngine reads the given 1-based page.
func NewPDFTextEngine(page int) *PDFTextEngine {
	return &PDFTextEngine{page: max(page, 1)}
}

// Name implements Engine.
func (*PDFTextEngine) Name() string { return EnginePDFText }

// Close implements Engine.
func (*PDFTextEngine) Close() error { return nil }

// Recognize implements Engine.
func (e *PDFTextEngine) Recognize(ctx context.Context, req Request) ([]Detection, error) {
	if !strings.EqualFold(filepath.Ext(req.Path), ".pdf") {
		return nil, fmt.Errorf("pdftext engine only reads PDF files, got %s", filepath.Base(req.Path))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := pdf.ExtractPageText(req.Path, e.page)
	if err != nil {
		return nil, err
	}

	sx, sy := 1.0, 1.0
	if req.Image != nil && text.Width > 0 && text.Height > 0 {
		b := req.Image.Bounds()
		sx = float64(b.Dx()) / text.Width
		sy = float64(b.Dy()) / text.Height
	}

	dets := make([]Detection, 0, len(text.Lines))
	for _, line := range text.Lines {
		l, t, r, b := line.Left*sx, line.Top*sy, line.Right*sx, line.Bottom*sy
		dets = append(dets, Detection{
			Quad:       regions.Quad{{X: l, Y: t}, {X: r, Y: t}, {X: r, Y: b}, {X: l, Y: b}},
			Text:       line.Text,
			Confidence: 1,
		})
	}
	return dets, nil
}
