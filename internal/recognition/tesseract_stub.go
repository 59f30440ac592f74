//go:build !tesseract

package recognition

import (
	"fmt"

	"golang.org/x/text/language"
)

// NewTesseractEngine reports ErrEngineUnavailable; build with -tags tesseract
// to link against libtesseract.
func NewTesseractEngine(_ []language.Tag, _ string) (Engine, error) {
	return nil, fmt.Errorf("%w: tesseract support not compiled in (build with -tags tesseract)", ErrEngineUnavailable)
}
