package regions

import (
	"fmt"
	"math"
)

// Point is a detector coordinate in image pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Quad is the four-point polygon returned by a text detector. Engines are
// expected to list the corners clockwise starting at the top-left.
type Quad [4]Point

// Rect is an axis-aligned rectangle in integer pixel coordinates with
// inclusive bounds on all sides.
type Rect struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Right  int `json:"right" yaml:"right"`
	Bottom int `json:"bottom" yaml:"bottom"`
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y int) bool {
	return r.Left <= x && x <= r.Right && r.Top <= y && y <= r.Bottom
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return r.Bottom - r.Top }

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// RectMode selects how a Quad is reduced to a Rect.
type RectMode int

const (
	// CornerMode uses the first and third points as opposite corners.
	CornerMode RectMode = iota
	// BoundsMode uses the min/max over all four points.
	BoundsMode
)

// ParseRectMode maps a configuration string to a RectMode.
func ParseRectMode(s string) (RectMode, error) {
	switch s {
	case "", "corners":
		return CornerMode, nil
	case "bounds":
		return BoundsMode, nil
	default:
		return CornerMode, fmt.Errorf("invalid rect mode: %s (must be corners or bounds)", s)
	}
}

func (m RectMode) String() string {
	if m == BoundsMode {
		return "bounds"
	}
	return "corners"
}

// RectFromQuad reduces q to an axis-aligned rectangle. Coordinates are
// truncated toward zero and the result is normalised so Left <= Right and
// Top <= Bottom.
func RectFromQuad(q Quad, mode RectMode) Rect {
	var r Rect
	switch mode {
	case BoundsMode:
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range q {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
		r = Rect{Left: int(minX), Top: int(minY), Right: int(maxX), Bottom: int(maxY)}
	default:
		r = Rect{Left: int(q[0].X), Top: int(q[0].Y), Right: int(q[2].X), Bottom: int(q[2].Y)}
	}
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

// QuadFromRect expands r into a clockwise quad starting at the top-left.
func QuadFromRect(r Rect) Quad {
	l, t, rt, b := float64(r.Left), float64(r.Top), float64(r.Right), float64(r.Bottom)
	return Quad{{X: l, Y: t}, {X: rt, Y: t}, {X: rt, Y: b}, {X: l, Y: b}}
}
