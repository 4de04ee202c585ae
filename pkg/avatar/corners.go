package avatar

import (
	"image"
	"math"

	"github.com/fogleman/gg"
)

// Position identifies one of the four image corners.
type Position int

const (
	TopLeft Position = iota
	TopRight
	BottomLeft
	BottomRight
)

var positionNames = [...]string{"top-left", "top-right", "bottom-left", "bottom-right"}

func (p Position) String() string {
	if p < TopLeft || p > BottomRight {
		return "unknown"
	}
	return positionNames[p]
}

// Point is a location in pixel-index space: pixel (i, j) is centered on (i, j)
// and covers [i-0.5, i+0.5) x [j-0.5, j+0.5).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box in pixel-index space.
type Rect struct {
	Min, Max Point
}

// Width returns Max.X - Min.X.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns Max.Y - Min.Y.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Corner is the part of one corner square lying outside the rounding circle.
// Pixels inside a Corner are erased when rounding an avatar.
type Corner struct {
	Position Position
	Bounds   Rect
	Center   Point // center of the rounding arc
	Radius   float64

	// rotation (degrees) about the prototype's box center, then offset
	angle  float64
	offset Point
}

// rotations for each corner, applied to the top-left prototype.
var rotations = [...]float64{
	TopLeft:     0,
	TopRight:    90,
	BottomLeft:  -90,
	BottomRight: 180,
}

// BuildCorners returns the four erase regions for a width x height image with
// the given corner radius.
//
// The top-left prototype is the square [-0.5, r-0.5]² minus the disc of
// radius r centered at (r-0.5, r-0.5). The other three are the prototype
// rotated about its own box center, then translated so that their boxes sit
// flush against the right and bottom image edges.
//
// Offsets are in pixel-index coordinates, where the last column is W-1, so
// the right and bottom boxes start at W-r and H-r with no +1 correction.
//
// A zero radius yields four empty regions. Callers are expected to validate
// 0 <= radius <= min(width, height)/2; larger radii produce overlapping
// regions.
func BuildCorners(width, height int, radius float64) [4]Corner {
	var corners [4]Corner

	rightPos := float64(width) - radius
	bottomPos := float64(height) - radius

	offsets := [...]Point{
		TopLeft:     {0, 0},
		TopRight:    {rightPos, 0},
		BottomLeft:  {0, bottomPos},
		BottomRight: {rightPos, bottomPos},
	}

	for p := TopLeft; p <= BottomRight; p++ {
		c := Corner{
			Position: p,
			Radius:   radius,
			angle:    rotations[p],
			offset:   offsets[p],
		}
		m := c.Matrix()

		x0, y0 := m.TransformPoint(-0.5, -0.5)
		x1, y1 := m.TransformPoint(radius-0.5, radius-0.5)
		c.Bounds = Rect{
			Min: Point{round6(math.Min(x0, x1)), round6(math.Min(y0, y1))},
			Max: Point{round6(math.Max(x0, x1)), round6(math.Max(y0, y1))},
		}

		// the arc center is the box corner opposite the image corner
		c.Center = Point{round6(x1), round6(y1)}

		corners[p] = c
	}
	return corners
}

// Matrix maps prototype coordinates to this corner's pixel-index coordinates.
func (c Corner) Matrix() gg.Matrix {
	pivot := (c.Radius - 1) / 2
	return gg.Translate(-pivot, -pivot).
		Multiply(gg.Rotate(gg.Radians(c.angle))).
		Multiply(gg.Translate(pivot, pivot)).
		Multiply(gg.Translate(c.offset.X, c.offset.Y))
}

// Contains reports whether (x, y), in pixel-index space, lies inside the
// erase region: within the corner box and strictly outside the arc.
func (c Corner) Contains(x, y float64) bool {
	if c.Radius <= 0 {
		return false
	}
	if x < c.Bounds.Min.X || x > c.Bounds.Max.X || y < c.Bounds.Min.Y || y > c.Bounds.Max.Y {
		return false
	}
	dx, dy := x-c.Center.X, y-c.Center.Y
	return dx*dx+dy*dy > c.Radius*c.Radius
}

// ContainsPixel reports whether the center of pixel (i, j) lies in the region.
func (c Corner) ContainsPixel(i, j int) bool {
	return c.Contains(float64(i), float64(j))
}

// PixelBounds returns the integer pixel rectangle covering the region.
func (c Corner) PixelBounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(c.Bounds.Min.X+0.5)),
		int(math.Floor(c.Bounds.Min.Y+0.5)),
		int(math.Ceil(c.Bounds.Max.X+0.5)),
		int(math.Ceil(c.Bounds.Max.Y+0.5)),
	)
}

// Trace appends the region outline to dc's current path, in pixel-index
// coordinates. The caller's transform is left untouched; set
// dc.Translate(0.5, 0.5) first to rasterize onto pixel areas.
func (c Corner) Trace(dc *gg.Context) {
	if c.Radius <= 0 {
		return
	}
	r := c.Radius
	pivot := (r - 1) / 2

	dc.Push()
	dc.Translate(c.offset.X, c.offset.Y)
	dc.RotateAbout(gg.Radians(c.angle), pivot, pivot)

	dc.NewSubPath()
	dc.MoveTo(-0.5, -0.5)
	dc.LineTo(r-0.5, -0.5)
	dc.DrawArc(r-0.5, r-0.5, r, -math.Pi/2, -math.Pi)
	dc.ClosePath()

	dc.Pop()
}

// round6 trims floating point noise left by rotations of ±90°.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
