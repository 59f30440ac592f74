package recognition

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/pogo-pad/internal/pdf"
)

// Decoder loads an input file into an image. Raster files go through imaging
// with EXIF orientation applied; PDFs yield the first embedded image of Page.
type Decoder struct {
	Page int
}

// NewDecoder creates a decoder reading the given 1-based PDF page.
func NewDecoder(page int) *Decoder {
	if page < 1 {
		page = 1
	}
	return &Decoder{Page: page}
}

// Decode loads path. Every failure is reported as a *DecodeError.
func (d *Decoder) Decode(path string) (image.Image, error) {
	if path == "" {
		return nil, &DecodeError{Path: path, Err: errors.New("empty path")}
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return d.decodePDF(path)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

func (d *Decoder) decodePDF(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	page := max(d.Page, 1)
	img, err := pdf.PageImage(path, page)
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, pdf.ErrNoPageImage) {
		return nil, &DecodeError{Path: path, Err: err}
	}

	// Vector-only page: hand out a blank canvas of the page size so text
	// regions still have somewhere to live.
	w, h, sizeErr := pdf.PageSize(path, page)
	if sizeErr != nil {
		return nil, &DecodeError{Path: path, Err: errors.Join(err, sizeErr)}
	}
	canvas := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(w)), int(math.Ceil(h))))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return canvas, nil
}
