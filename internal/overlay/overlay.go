// Package overlay draws recognized region boxes over the input image, the way
// the editor canvas shows them.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// DefaultBoxColor is the outline used when none is configured.
var DefaultBoxColor color.Color = color.RGBA{0, 255, 0, 255}

// Options controls overlay rendering.
type Options struct {
	BoxColor  color.Color
	Thickness int

	// Highlight, when set, is filled with HighlightColor.
	Highlight      *regions.Rect
	HighlightColor color.Color
}

// Render returns a copy of img, rebased to the origin, with one rectangle
// outline per region.
func Render(img image.Image, regs []regions.Region, opts Options) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	boxColor := opts.BoxColor
	if boxColor == nil {
		boxColor = DefaultBoxColor
	}
	if opts.Highlight != nil {
		hl := opts.HighlightColor
		if hl == nil {
			hl = color.RGBA{255, 255, 0, 255}
		}
		mask := image.NewUniform(color.Alpha{A: 96})
		draw.DrawMask(dst, toImageRect(*opts.Highlight), image.NewUniform(hl), image.Point{}, mask, image.Point{}, draw.Over)
	}
	for _, r := range regs {
		DrawRect(dst, toImageRect(r.Box), boxColor, opts.Thickness)
	}
	return dst
}

// toImageRect converts an inclusive region rectangle into a half-open image.Rectangle.
func toImageRect(r regions.Rect) image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right+1, r.Bottom+1)
}

// DrawRect draws an axis-aligned rectangle outline with the given thickness.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := 0; t < thickness; t++ {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// ParseHexColor parses colors like "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{uint8(rv), uint8(gv), uint8(bv), 255}, nil //nolint:gosec // G115: two hex digits fit a byte
}
