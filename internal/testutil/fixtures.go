package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// Scan is a generated input file with the boxes its lines were drawn into.
type Scan struct {
	Path  string
	Lines []string
	Boxes []regions.Rect
}

// Regions pairs every line with its box, confidence 1.
func (s Scan) Regions() []regions.Region {
	out := make([]regions.Region, len(s.Lines))
	for i, line := range s.Lines {
		out[i] = regions.Region{Box: s.Boxes[i], Text: line, Confidence: 1}
	}
	return out
}

// Center returns a point inside the i-th line's box.
func (s Scan) Center(i int) (int, int) {
	b := s.Boxes[i]
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

// WriteScan renders lines into dir/name. The extension of name selects the
// image format.
func WriteScan(t *testing.T, dir, name string, lines ...string) Scan {
	t.Helper()

	scan, err := RenderScan(dir, name, lines...)
	require.NoError(t, err)
	return scan
}

// RenderScan is WriteScan for callers without a *testing.T, such as feature
// step definitions.
func RenderScan(dir, name string, lines ...string) (Scan, error) {
	config := DefaultTextImageConfig()
	config.Lines = lines
	img, boxes := GenerateTextImage(config)

	path := filepath.Join(dir, name)
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return Scan{}, err
	}
	if err := imaging.Save(img, path); err != nil {
		return Scan{}, fmt.Errorf("save scan %s: %w", name, err)
	}
	return Scan{Path: path, Lines: lines, Boxes: boxes}, nil
}
