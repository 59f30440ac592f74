package recognition

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// AdapterOptions tunes how raw detections become regions.
type AdapterOptions struct {
	RectMode      regions.RectMode
	MinConfidence float64
	Logger        *slog.Logger
}

// Adapter decodes an input, runs the engine once and converts the detections
// into regions. It remembers the most recent result.
//
// Adapter is safe for concurrent use; the cache is replaced by whichever call
// finishes last.
type Adapter struct {
	engine  Engine
	decoder *Decoder
	opts    AdapterOptions

	mu       sync.Mutex
	lastPath string
	last     []regions.Region
	hasLast  bool
}

// NewAdapter wires an engine to a decoder.
func NewAdapter(engine Engine, decoder *Decoder, opts AdapterOptions) *Adapter {
	if decoder == nil {
		decoder = NewDecoder(1)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{engine: engine, decoder: decoder, opts: opts}
}

// EngineName reports the wrapped engine.
func (a *Adapter) EngineName() string { return a.engine.Name() }

// Decode exposes the decoder so callers can render what was recognized.
func (a *Adapter) Decode(path string) (image.Image, error) {
	return a.decoder.Decode(path)
}

// Recognize returns the regions found in path, in engine order. Decode
// failures come back as *DecodeError, engine failures as *RecognitionError.
func (a *Adapter) Recognize(ctx context.Context, path string) ([]regions.Region, error) {
	start := time.Now()
	img, err := a.decoder.Decode(path)
	if err != nil {
		a.clear()
		return nil, err
	}

	dets, err := a.engine.Recognize(ctx, Request{Path: path, Image: img})
	if err != nil {
		a.clear()
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			return nil, err
		}
		return nil, &RecognitionError{Engine: a.engine.Name(), Path: path, Err: err}
	}

	out := make([]regions.Region, 0, len(dets))
	for _, d := range dets {
		text := strings.TrimSpace(norm.NFC.String(d.Text))
		if text == "" || d.Confidence < a.opts.MinConfidence {
			continue
		}
		out = append(out, regions.Region{
			Box:        regions.RectFromQuad(d.Quad, a.opts.RectMode),
			Text:       text,
			Confidence: d.Confidence,
		})
	}

	a.mu.Lock()
	a.lastPath, a.last, a.hasLast = path, out, true
	a.mu.Unlock()

	a.opts.Logger.Debug("recognition finished",
		"engine", a.engine.Name(),
		"path", path,
		"detections", len(dets),
		"regions", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return slices.Clone(out), nil
}

// LastResult returns the cached result of the most recent successful call.
func (a *Adapter) LastResult() (string, []regions.Region, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasLast {
		return "", nil, false
	}
	return a.lastPath, slices.Clone(a.last), true
}

// Close releases the engine.
func (a *Adapter) Close() error { return a.engine.Close() }

func (a *Adapter) clear() {
	a.mu.Lock()
	a.lastPath, a.last, a.hasLast = "", nil, false
	a.mu.Unlock()
}
