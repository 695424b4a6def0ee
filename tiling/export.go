package tiling

import "fmt"

// StagePosition is one named tile position in absolute stage coordinates,
// ready for an external experiment writer.
type StagePosition struct {
	Name string
	X    float64
	Y    float64
	Z    float64
}

// Export converts tile positions to named stage-position records, applying
// the objective-specific x/y offset that keeps different objectives centered
// on the same physical point.  Z is passed through unchanged; focus offsets
// are handled by the focus drive, not the position list.
func Export(prefix string, positions []Position, offsetX, offsetY float64) []StagePosition {
	out := make([]StagePosition, len(positions))
	for i, p := range positions {
		out[i] = StagePosition{
			Name: fmt.Sprintf("%s_%04d", prefix, i),
			X:    p.X + offsetX,
			Y:    p.Y + offsetY,
			Z:    p.Z,
		}
	}
	return out
}
