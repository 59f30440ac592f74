package pdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/dslipak/pdf"
)

// Letter size in points, used when the page does not declare a MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// TextLine is one row of vector text with its bounding box in page space.
// Coordinates are in points with the origin at the top-left of the page.
type TextLine struct {
	Text   string
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// PageText is the vector text of a single page.
type PageText struct {
	PageNumber int
	Width      float64
	Height     float64
	Lines      []TextLine
}

// ExtractPageText reads the vector text rows of the given 1-based page.
func ExtractPageText(filename string, page int) (*PageText, error) {
	reader, err := pdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}
	if page < 1 || page > reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", page, reader.NumPage())
	}

	p := reader.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", page)
	}

	width, height := pageDimensions(p)
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("failed to read text rows on page %d: %w", page, err)
	}

	out := &PageText{PageNumber: page, Width: width, Height: height}
	for _, row := range rows {
		if line, ok := lineFromRow(row.Content, height); ok {
			out.Lines = append(out.Lines, line)
		}
	}
	return out, nil
}

// lineFromRow merges the text runs of a row into a single line. A space is
// inserted where the horizontal gap between runs exceeds a quarter of the font size.
func lineFromRow(runs []pdf.Text, pageHeight float64) (TextLine, bool) {
	var (
		sb          strings.Builder
		left, right = math.Inf(1), math.Inf(-1)
		top, bottom = math.Inf(1), math.Inf(-1)
		prevEnd     = math.NaN()
	)
	for _, t := range runs {
		if t.S == "" {
			continue
		}
		fs := t.FontSize
		if fs <= 0 {
			fs = 12
		}
		if !math.IsNaN(prevEnd) && t.X-prevEnd > fs/4 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W

		left = math.Min(left, t.X)
		right = math.Max(right, t.X+t.W)
		// Baseline Y is measured from the bottom; flip to a top-left origin.
		top = math.Min(top, pageHeight-(t.Y+fs))
		bottom = math.Max(bottom, pageHeight-t.Y+fs*0.2)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return TextLine{}, false
	}
	return TextLine{Text: text, Left: left, Top: math.Max(top, 0), Right: right, Bottom: bottom}, true
}

// pageDimensions reads the MediaBox of a page, falling back to letter size.
func pageDimensions(p pdf.Page) (float64, float64) {
	box := p.V.Key("MediaBox")
	if box.Len() != 4 {
		return defaultPageWidth, defaultPageHeight
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}

// PageSize returns the MediaBox width and height of the given 1-based page in points.
func PageSize(filename string, page int) (float64, float64, error) {
	reader, err := pdf.Open(filename)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}
	if page < 1 || page > reader.NumPage() {
		return 0, 0, fmt.Errorf("page %d out of range (document has %d)", page, reader.NumPage())
	}
	w, h := pageDimensions(reader.Page(page))
	return w, h, nil
}
