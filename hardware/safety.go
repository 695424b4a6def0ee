package hardware

import "fmt"

// CrashDangerError reports a refused move that would have left the safety
// area.
type CrashDangerError struct {
	Area    string
	X, Y, Z float64
}

func (e *CrashDangerError) Error() string {
	return fmt.Sprintf("hardware: move to (%.1f, %.1f, %.1f) leaves safety area %q", e.X, e.Y, e.Z, e.Area)
}

// SafetyArea is the region the stage may occupy without the objective
// colliding with the plate holder or the incubator hardware.  Positions are
// absolute stage coordinates in um; ZMax caps the focus height inside the
// area.
type SafetyArea struct {
	ID   string
	XMin float64
	XMax float64
	YMin float64
	YMax float64
	ZMax float64
}

// IsSafePosition reports whether a target position lies inside the area.
// Moves to unsafe positions must be refused before any motion command is
// issued; discovering the violation mid-move is too late.
func (s SafetyArea) IsSafePosition(x, y, z float64) bool {
	if x < s.XMin || x > s.XMax {
		return false
	}
	if y < s.YMin || y > s.YMax {
		return false
	}
	return z <= s.ZMax
}
