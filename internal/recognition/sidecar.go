package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// sidecarSuffixes are probed in order next to the input file.
var sidecarSuffixes = []string{".regions.yaml", ".regions.yml", ".regions.json"}

type sidecarRegion struct {
	Polygon    []regions.Point `json:"polygon" yaml:"polygon"`
	Text       string          `json:"text" yaml:"text"`
	Confidence *float64        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

type sidecarFile struct {
	Engine  string          `json:"engine,omitempty" yaml:"engine,omitempty"`
	Regions []sidecarRegion `json:"regions" yaml:"regions"`
}

// SidecarEngine reads detections that were recorded next to the input, in
// <input>.regions.yaml or <input>.regions.json. It is used for offline work
// and as a fixture source.
type SidecarEngine struct{}

// NewSidecarEngine creates a sidecar engine.
func NewSidecarEngine() *SidecarEngine { return &SidecarEngine{} }

// Name implements Engine.
func (*SidecarEngine) Name() string { return EngineSidecar }

// Close implements Engine.
func (*SidecarEngine) Close() error { return nil }

// Recognize implements Engine.
func (*SidecarEngine) Recognize(ctx context.Context, req Request) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := findSidecar(req.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: sidecar sits next to the user's input
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}

	var doc sidecarFile
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", filepath.Base(path), err)
	}

	dets := make([]Detection, 0, len(doc.Regions))
	for i, r := range doc.Regions {
		q, err := quadFromPolygon(r.Polygon)
		if err != nil {
			return nil, fmt.Errorf("sidecar region %d: %w", i, err)
		}
		conf := 1.0
		if r.Confidence != nil {
			conf = *r.Confidence
		}
		dets = append(dets, Detection{Quad: q, Text: r.Text, Confidence: conf})
	}
	return dets, nil
}

// SidecarPath returns where WriteSidecar stores detections for input.
func SidecarPath(input string) string { return input + sidecarSuffixes[0] }

// WriteSidecar records detections for input so a later SidecarEngine call
// returns them.
func WriteSidecar(input, engine string, dets []Detection) (string, error) {
	doc := sidecarFile{Engine: engine, Regions: make([]sidecarRegion, 0, len(dets))}
	for _, d := range dets {
		d := d // per-iteration copy: Polygon slices d.Quad (pre-Go 1.22 loop semantics)
		conf := d.Confidence
		doc.Regions = append(doc.Regions, sidecarRegion{
			Polygon:    d.Quad[:],
			Text:       d.Text,
			Confidence: &conf,
		})
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("encode sidecar: %w", err)
	}
	path := SidecarPath(input)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // regions are not secret
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return path, nil
}

func findSidecar(input string) (string, error) {
	for _, suffix := range sidecarSuffixes {
		p := input + suffix
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat sidecar: %w", err)
		}
	}
	return "", fmt.Errorf("no sidecar found for %s", filepath.Base(input))
}

// quadFromPolygon accepts four corners, or two opposite corners which are
// expanded into an axis-aligned quad.
func quadFromPolygon(pts []regions.Point) (regions.Quad, error) {
	switch len(pts) {
	case 4:
		return regions.Quad(pts), nil
	case 2:
		a, b := pts[0], pts[1]
		return regions.Quad{a, {X: b.X, Y: a.Y}, b, {X: a.X, Y: b.Y}}, nil
	default:
		return regions.Quad{}, fmt.Errorf("polygon needs 2 or 4 points, got %d", len(pts))
	}
}
