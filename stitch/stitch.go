// Package stitch assembles individual tile images into a single composite
// using the stage positions the tiles were acquired at.  No correlation or
// blending is performed; tiles are placed purely by geometry, which is what
// a calibrated stage supports and what downstream segmentation expects.
package stitch

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Tile pairs an acquired image with the stage position of its center, in the
// coordinates of the object that was tiled.  Meta is an opaque sidecar the
// acquisition layer attaches; it is carried, never interpreted.
type Tile struct {
	Image *image.Gray16
	X     float64
	Y     float64
	Meta  map[string]interface{}
}

// GeometryError reports tiles whose positions or dimensions cannot form a
// consistent grid.
type GeometryError struct {
	Reason string
}

func (e GeometryError) Error() string {
	return "stitch: " + e.Reason
}

// Composite is the assembled image plus the mapping back from pixels to
// stage coordinates.  Seam slices list the pixel columns and rows where tile
// borders meet; both are empty for a single tile.
type Composite struct {
	Image *image.Gray16

	// OriginX, OriginY are the stage coordinates of the pixel (0, 0),
	// the upper-left corner.  Image rows run from largest stage y
	// downward, matching the on-screen orientation of the sample.
	OriginX float64
	OriginY float64

	// ScaleX, ScaleY convert pixels to stage units.
	ScaleX float64
	ScaleY float64

	SeamsX []int
	SeamsY []int

	// RefX, RefY are the position of the middle tile in acquisition
	// order, the natural anchor for focusing and metadata.  Meta is a
	// copy of that tile's sidecar.
	RefX float64
	RefY float64
	Meta map[string]interface{}
}

// StageToPixel maps a stage position into composite pixel coordinates.
func (c *Composite) StageToPixel(x, y float64) (int, int) {
	px := int(math.Round((x - c.OriginX) / c.ScaleX))
	py := int(math.Round((c.OriginY - y) / c.ScaleY))
	return px, py
}

// PixelToStage maps composite pixel coordinates back to the stage.
func (c *Composite) PixelToStage(px, py int) (float64, float64) {
	return c.OriginX + float64(px)*c.ScaleX, c.OriginY - float64(py)*c.ScaleY
}

func tileDims(tiles []Tile) (int, int, error) {
	if len(tiles) == 0 {
		return 0, 0, GeometryError{Reason: "no tiles"}
	}
	if tiles[0].Image == nil {
		return 0, 0, GeometryError{Reason: "tile 0 has no image"}
	}
	b := tiles[0].Image.Bounds()
	w, h := b.Dx(), b.Dy()
	for i, t := range tiles {
		if t.Image == nil {
			return 0, 0, GeometryError{Reason: fmt.Sprintf("tile %d has no image", i)}
		}
		tb := t.Image.Bounds()
		if tb.Dx() != w || tb.Dy() != h {
			return 0, 0, GeometryError{Reason: fmt.Sprintf(
				"tile %d is %dx%d, tile 0 is %dx%d", i, tb.Dx(), tb.Dy(), w, h)}
		}
	}
	return w, h, nil
}

func blit(dst *image.Gray16, src *image.Gray16, x0, y0 int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
		dstOff := (y0+y)*dst.Stride + x0*2
		copy(dst.Pix[dstOff:dstOff+b.Dx()*2], srcRow[:b.Dx()*2])
	}
}

func middle(tiles []Tile) (float64, float64, map[string]interface{}) {
	m := tiles[len(tiles)/2]
	if m.Meta == nil {
		return m.X, m.Y, nil
	}
	meta := make(map[string]interface{}, len(m.Meta))
	for k, v := range m.Meta {
		meta[k] = v
	}
	return m.X, m.Y, meta
}

// Rectangular stitches a full nx by ny grid of equally sized tiles.  Tiles
// may arrive in any acquisition order; they are regrouped into rows by y
// (largest first, so the top image row is the largest stage y) and within a
// row by x ascending.
func Rectangular(tiles []Tile, nx, ny int) (*Composite, error) {
	if nx < 1 || ny < 1 || len(tiles) != nx*ny {
		return nil, GeometryError{Reason: fmt.Sprintf(
			"%d tiles cannot fill a %dx%d grid", len(tiles), nx, ny)}
	}
	w, h, err := tileDims(tiles)
	if err != nil {
		return nil, err
	}
	refX, refY, meta := middle(tiles)

	sorted := make([]Tile, len(tiles))
	copy(sorted, tiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	// every row must share one y and present nx distinct x positions
	for r := 0; r < ny; r++ {
		row := sorted[r*nx : (r+1)*nx]
		for _, t := range row[1:] {
			if t.Y != row[0].Y {
				return nil, GeometryError{Reason: fmt.Sprintf(
					"row %d mixes y positions %g and %g", r, row[0].Y, t.Y)}
			}
		}
		for i := 1; i < nx; i++ {
			if row[i].X == row[i-1].X {
				return nil, GeometryError{Reason: fmt.Sprintf(
					"row %d repeats x position %g", r, row[i].X)}
			}
		}
	}

	out := image.NewGray16(image.Rect(0, 0, nx*w, ny*h))
	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			blit(out, sorted[r*nx+c].Image, c*w, r*h)
		}
	}

	comp := &Composite{Image: out, RefX: refX, RefY: refY, Meta: meta, ScaleX: 1, ScaleY: 1}
	for c := 1; c < nx; c++ {
		comp.SeamsX = append(comp.SeamsX, c*w)
	}
	for r := 1; r < ny; r++ {
		comp.SeamsY = append(comp.SeamsY, r*h)
	}

	// pixel scale from the column and row pitch
	if nx > 1 {
		comp.ScaleX = (sorted[nx-1].X - sorted[0].X) / float64(w*(nx-1))
	}
	if ny > 1 {
		comp.ScaleY = (sorted[0].Y - sorted[(ny-1)*nx].Y) / float64(h*(ny-1))
	}
	// stage coordinates of the upper-left pixel, half a tile beyond the
	// first tile center
	comp.OriginX = sorted[0].X - comp.ScaleX*float64(w)/2
	comp.OriginY = sorted[0].Y + comp.ScaleY*float64(h)/2
	return comp, nil
}

// AnyShape stitches tiles laid out on a sparse grid, as produced by ellipse
// coverage of a well.  Tile centers must sit on a regular pitch but the grid
// need not be filled; uncovered canvas stays black.
func AnyShape(tiles []Tile) (*Composite, error) {
	w, h, err := tileDims(tiles)
	if err != nil {
		return nil, err
	}
	refX, refY, meta := middle(tiles)

	xs := distinct(tiles, func(t Tile) float64 { return t.X })
	ys := distinct(tiles, func(t Tile) float64 { return t.Y })

	scaleX, err := axisScale(xs, w, "x")
	if err != nil {
		return nil, err
	}
	scaleY, err := axisScale(ys, h, "y")
	if err != nil {
		return nil, err
	}

	// lowest tile center maps to pixel offset zero on each axis
	offX := xs[0] / scaleX
	offY := ys[0] / scaleY

	maxXPix, maxYPix := 0, 0
	type placed struct {
		t      Tile
		px, py int
	}
	ps := make([]placed, len(tiles))
	for i, t := range tiles {
		px := int(math.Round(t.X/scaleX - offX))
		py := int(math.Round(t.Y/scaleY - offY))
		ps[i] = placed{t: t, px: px, py: py}
		if px > maxXPix {
			maxXPix = px
		}
		if py > maxYPix {
			maxYPix = py
		}
	}

	width := maxXPix + w
	height := maxYPix + h
	out := image.NewGray16(image.Rect(0, 0, width, height))
	for _, p := range ps {
		// flip y so the largest stage y lands on the top row
		blit(out, p.t.Image, p.px, height-p.py-h)
	}

	// interior tile boundaries, for downstream segmentation
	var seamsX, seamsY []int
	for _, x := range xs[1:] {
		seamsX = append(seamsX, int(math.Round(x/scaleX-offX)))
	}
	for _, y := range ys[:len(ys)-1] {
		py := int(math.Round(y/scaleY - offY))
		seamsY = append(seamsY, height-py-h)
	}
	sort.Ints(seamsY)

	return &Composite{
		Image:   out,
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		OriginX: xs[0] - scaleX*float64(w)/2,
		OriginY: ys[len(ys)-1] + scaleY*float64(h)/2,
		SeamsX:  seamsX,
		SeamsY:  seamsY,
		RefX:    refX,
		RefY:    refY,
		Meta:    meta,
	}, nil
}

func distinct(tiles []Tile, pick func(Tile) float64) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, t := range tiles {
		v := pick(t)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// axisScale derives stage units per pixel from the span of distinct tile
// centers.  A single column or row has no span and maps one pixel to one
// stage unit.
func axisScale(vals []float64, pix int, axis string) (float64, error) {
	if len(vals) == 1 {
		return 1, nil
	}
	span := vals[len(vals)-1] - vals[0]
	scale := span / float64(pix*(len(vals)-1))
	if scale <= 0 {
		return 0, GeometryError{Reason: fmt.Sprintf("non-positive %s pitch", axis)}
	}
	return scale, nil
}
