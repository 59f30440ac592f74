//go:build tesseract

package recognition

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// TesseractEngine runs a local Tesseract through gosseract.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	level  gosseract.PageIteratorLevel
}

// NewTesseractEngine creates a client for langs. Level is "word" (default) or "line".
func NewTesseractEngine(langs []language.Tag, level string) (Engine, error) {
	ril, err := tesseractLevel(level)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(langs))
	for _, tag := range langs {
		names = append(names, tesseractLanguage(tag))
	}
	if len(names) == 0 {
		names = []string{"eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(names...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR languages %s: %w", strings.Join(names, "+"), err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	return &TesseractEngine{client: client, level: ril}, nil
}

func tesseractLevel(level string) (gosseract.PageIteratorLevel, error) {
	switch level {
	case "", "word":
		return gosseract.RIL_WORD, nil
	case "line":
		return gosseract.RIL_TEXTLINE, nil
	default:
		return 0, fmt.Errorf("invalid tesseract level: %s (must be word or line)", level)
	}
}

// Name implements Engine.
func (*TesseractEngine) Name() string { return EngineTesseract }

// Close implements Engine.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(ctx context.Context, req Request) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(e.level)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	dets := make([]Detection, 0, len(boxes))
	for _, box := range boxes {
		r := box.Box
		dets = append(dets, Detection{
			Quad: regions.QuadFromRect(regions.Rect{
				Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y,
			}),
			Text:       box.Word,
			Confidence: box.Confidence / 100,
		})
	}
	return dets, nil
}
