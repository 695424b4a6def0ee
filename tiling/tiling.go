// Package tiling generates position lists for tiled and multi-position
// imaging.  A Spec describes the arrangement (rectangle or ellipse, tile
// counts, pitch, field rotation) and Positions expands it into an ordered
// list of tile centers around a caller-supplied center.  The expansion is a
// pure function: the same Spec and center always yield the identical ordered
// list, which downstream reconstruction relies on to index tiles by
// position.
package tiling

import (
	"errors"
	"fmt"
	"math"
)

// Shape selects the arrangement of tiles.
type Shape int

const (
	// None produces a single position at the center.
	None Shape = iota

	// Rectangle produces an evenly spaced nx by ny grid.
	Rectangle

	// Ellipse produces the Rectangle grid with corner positions outside
	// the inscribed ellipse removed.
	Ellipse
)

func (s Shape) String() string {
	switch s {
	case None:
		return "none"
	case Rectangle:
		return "rectangle"
	case Ellipse:
		return "ellipse"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape converts a configuration string to a Shape.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "none", "":
		return None, nil
	case "rectangle":
		return Rectangle, nil
	case "ellipse":
		return Ellipse, nil
	}
	return None, fmt.Errorf("tiling: unknown shape %q", s)
}

// Position is a tile center in micrometers.
type Position struct {
	X float64
	Y float64
	Z float64
}

// Spec describes a tile arrangement.  It is a value type; callers construct
// one per scan and never mutate it afterwards.
type Spec struct {
	Shape Shape

	// NX, NY are the number of tiles along x and y.  Ignored for None.
	NX int
	NY int

	// PitchX, PitchY are the distances between tile centers in um.
	PitchX float64
	PitchY float64

	// RotationDeg rotates the tile field counterclockwise about the
	// center, in degrees.
	RotationDeg float64
}

var errBadCount = errors.New("tiling: tile counts must be at least 1")

// Validate checks that the spec can be expanded.
func (s Spec) Validate() error {
	if s.Shape == None {
		return nil
	}
	if s.NX < 1 || s.NY < 1 {
		return errBadCount
	}
	if s.PitchX < 0 || s.PitchY < 0 {
		return errors.New("tiling: pitch must not be negative")
	}
	return nil
}

// Positions expands the spec into tile centers around center.  Offsets are
// pitch-scaled, then rotated counterclockwise about the origin, then
// translated by center.  Tiles are ordered column-major: x varies in the
// outer loop, y in the inner one.
func (s Spec) Positions(center Position) []Position {
	var offsets []Position
	switch s.Shape {
	case None:
		offsets = []Position{{}}
	case Rectangle:
		offsets = s.grid()
	case Ellipse:
		offsets = s.ellipse()
	}
	if s.RotationDeg != 0 {
		offsets = rotate(offsets, s.RotationDeg)
	}
	out := make([]Position, len(offsets))
	for i, p := range offsets {
		out[i] = Position{
			X: p.X + center.X,
			Y: p.Y + center.Y,
			Z: p.Z + center.Z,
		}
	}
	return out
}

// grid returns the rectangle offsets centered on the origin,
// ((i-(nx-1)/2)*pitchX, (j-(ny-1)/2)*pitchY).
func (s Spec) grid() []Position {
	out := make([]Position, 0, s.NX*s.NY)
	for i := 0; i < s.NX; i++ {
		x := (float64(i) - float64(s.NX-1)/2) * s.PitchX
		for j := 0; j < s.NY; j++ {
			y := (float64(j) - float64(s.NY-1)/2) * s.PitchY
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}

// ellipse filters the grid to offsets inside the inscribed ellipse with
// semi-axes nx*pitchX/2 and ny*pitchY/2.
func (s Spec) ellipse() []Position {
	a := float64(s.NX) * s.PitchX / 2
	b := float64(s.NY) * s.PitchY / 2
	grid := s.grid()
	out := make([]Position, 0, len(grid))
	for _, p := range grid {
		if (p.X/a)*(p.X/a)+(p.Y/b)*(p.Y/b) <= 1 {
			out = append(out, p)
		}
	}
	return out
}

func rotate(positions []Position, degrees float64) []Position {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	out := make([]Position, len(positions))
	for i, p := range positions {
		out[i] = Position{
			X: cos*p.X - sin*p.Y,
			Y: sin*p.X + cos*p.Y,
			Z: p.Z,
		}
	}
	return out
}
