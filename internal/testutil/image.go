package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test image sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
)

// TextImageConfig holds configuration for generating scanned-page stand-ins.
type TextImageConfig struct {
	Lines       []string
	Size        ImageSize
	Background  color.Color
	Foreground  color.Color
	FontFace    font.Face
	Margin      int
	LineSpacing int
}

// DefaultTextImageConfig returns a default configuration for test images.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Lines:       []string{"Sample Text"},
		Size:        SmallSize,
		Background:  color.White,
		Foreground:  color.Black,
		FontFace:    basicfont.Face7x13,
		Margin:      10,
		LineSpacing: 8,
	}
}

// GenerateTextImage draws each line left-aligned below the previous one and
// returns the image together with the box each line occupies.
func GenerateTextImage(config TextImageConfig) (*image.RGBA, []regions.Rect) {
	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}
	metrics := config.FontFace.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	lineHeight := ascent + descent + config.LineSpacing

	boxes := make([]regions.Rect, 0, len(config.Lines))
	for i, line := range config.Lines {
		top := config.Margin + i*lineHeight
		baseline := top + ascent
		drawer.Dot = fixed.P(config.Margin, baseline)
		drawer.DrawString(line)

		width := font.MeasureString(config.FontFace, line).Ceil()
		boxes = append(boxes, regions.Rect{
			Left:   config.Margin,
			Top:    top,
			Right:  config.Margin + width,
			Bottom: baseline + descent,
		})
	}
	return img, boxes
}

// SaveImage saves an image to path, picking the encoder from the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)
	require.NoError(t, imaging.Save(img, path), "Failed to save image %s", path)
}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}
