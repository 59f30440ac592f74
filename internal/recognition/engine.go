// Package recognition turns an input file into positioned text regions. The
// engine that does the actual reading is pluggable; the Adapter wraps one
// engine together with a Decoder and normalises what comes back.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// Engine names accepted by NewEngine.
const (
	EngineSidecar   = "sidecar"
	EngineRemote    = "remote"
	EnginePDFText   = "pdftext"
	EngineTesseract = "tesseract"
)

// ErrEngineUnavailable is returned when an engine was not compiled in or
// cannot be reached.
var ErrEngineUnavailable = errors.New("recognition engine unavailable")

// Detection is one raw engine result: a polygon, its text and a confidence in [0, 1].
type Detection struct {
	Quad       regions.Quad
	Text       string
	Confidence float64
}

// Request is a single recognition call. Image is the decoded input; Path is
// the file it came from, which some engines read directly.
type Request struct {
	Path  string
	Image image.Image
}

// Engine reads text out of an image. Implementations are constructed with a
// fixed language set and may be called from any goroutine.
type Engine interface {
	Recognize(ctx context.Context, req Request) ([]Detection, error)
	Name() string
	Close() error
}

// Options configures engine construction.
type Options struct {
	Engine    string
	Languages []language.Tag

	// Remote engine.
	ServerURL string
	Timeout   time.Duration

	// PDF inputs.
	PDFPage int

	// Tesseract granularity: "word" or "line".
	Level string
}

// NewEngine builds the engine named in opts.
func NewEngine(opts Options) (Engine, error) {
	switch strings.ToLower(opts.Engine) {
	case "", EngineSidecar:
		return NewSidecarEngine(), nil
	case EngineRemote:
		e, err := NewRemoteEngine(opts.ServerURL, opts.Languages, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EnginePDFText:
		return NewPDFTextEngine(opts.PDFPage), nil
	case EngineTesseract:
		return NewTesseractEngine(opts.Languages, opts.Level)
	default:
		return nil, fmt.Errorf("unknown recognition engine: %s", opts.Engine)
	}
}

// ParseLanguages parses BCP 47 tags such as "ja" or "en-US". Empty entries are skipped.
func ParseLanguages(codes []string) ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		tag, err := language.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", c, err)
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, errors.New("at least one language is required")
	}
	return tags, nil
}

// tesseractLanguage maps a tag onto the traineddata name tesseract expects.
func tesseractLanguage(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "zh" {
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "chi_tra"
		}
		return "chi_sim"
	}
	if iso3 := base.ISO3(); iso3 != "" {
		return iso3
	}
	return base.String()
}
