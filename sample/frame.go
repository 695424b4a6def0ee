// Package sample models the physical hierarchy on a motorized microscope:
// plate holder → plate → well → colony → cell.  Every object carries its own
// coordinate system relative to its container, with an origin, per-axis
// mirror flips, multiplicative scale corrections and a tilt plane.  Frames
// compose along the container chain, so any position can be expressed in
// absolute stage coordinates and revisited regardless of which objective is
// mounted.
package sample

import (
	"fmt"
	"log"
)

// Position is a point in um in some frame's coordinates.
type Position struct {
	X float64
	Y float64
	Z float64
}

// Flip mirrors a frame's axes relative to its container.  Components are
// +1 (unmirrored) or -1 (mirrored).
type Flip struct {
	X int
	Y int
	Z int
}

// Correction holds multiplicative scale corrections per axis, compensating
// calibration mismatch between nominal and measured geometry (for example
// measured vs nominal well diameter).  Components must be nonzero.
type Correction struct {
	X float64
	Y float64
	Z float64
}

// Tilt describes sample tilt as the plane
// SlopeX*x + SlopeY*y + SlopeZ*z = Offset.  SlopeZ == 0 means no tilt
// correction is configured.
type Tilt struct {
	SlopeX float64
	SlopeY float64
	SlopeZ float64
	Offset float64
}

// HardwareIDs names the hardware components that apply to a frame.  Empty
// strings inherit from the nearest ancestor that defines the id.
type HardwareIDs struct {
	Stage            string
	FocusDrive       string
	AutoFocus        string
	ObjectiveChanger string
	Safety           string
	Cameras          []string
}

// ConfigurationError reports an invalid frame configuration.  Validation
// happens at construction so that a malformed correction can never surface
// as Inf or NaN inside a movement command.
type ConfigurationError struct {
	Object string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("sample: invalid configuration of %q: %s", e.Object, e.Reason)
}

// FrameConfig collects the construction parameters of a Frame.  Zero-valued
// Flip and Correction structs mean "identity"; a partially populated struct
// with a zero component is rejected.
type FrameConfig struct {
	Name       string
	Zero       Position
	Flip       Flip
	Correction Correction
	Tilt       Tilt

	// Safe is a neutral retreat position in the frame's own coordinates,
	// approached before any movement.  Nil inherits the container's.
	Safe *Position

	// Reference is an explicit reference position used for parfocality
	// correction between objectives.  Mutually exclusive with a
	// reference object; see SetReferenceObject.
	Reference *Position

	Hardware HardwareIDs
}

// Frame is one node in the coordinate-system tree.  A frame with no parent
// is a root; its parent coordinates are absolute stage coordinates.
//
// Frames are mutated only by the single control thread that drives the
// microscope and are not safe for concurrent use.
type Frame struct {
	name   string
	parent *Frame

	zero Position
	flip Flip
	corr Correction
	tilt Tilt

	safe      *Position
	refObject *Frame
	refPos    *Position

	hw HardwareIDs
}

// NewFrame validates cfg and creates a frame below parent (nil for a root).
func NewFrame(parent *Frame, cfg FrameConfig) (*Frame, error) {
	flip, err := normalizeFlip(cfg.Name, cfg.Flip)
	if err != nil {
		return nil, err
	}
	corr, err := normalizeCorrection(cfg.Name, cfg.Correction)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		name:   cfg.Name,
		parent: parent,
		zero:   cfg.Zero,
		flip:   flip,
		corr:   corr,
		tilt:   cfg.Tilt,
		hw:     cfg.Hardware,
	}
	if cfg.Safe != nil {
		p := *cfg.Safe
		f.safe = &p
	}
	if cfg.Reference != nil {
		p := *cfg.Reference
		f.refPos = &p
	}
	return f, nil
}

func normalizeFlip(name string, fl Flip) (Flip, error) {
	if fl == (Flip{}) {
		return Flip{X: 1, Y: 1, Z: 1}, nil
	}
	for _, v := range []int{fl.X, fl.Y, fl.Z} {
		if v != 1 && v != -1 {
			return Flip{}, ConfigurationError{Object: name,
				Reason: fmt.Sprintf("flip components must be -1 or +1, got %+v", fl)}
		}
	}
	return fl, nil
}

func normalizeCorrection(name string, c Correction) (Correction, error) {
	if c == (Correction{}) {
		return Correction{X: 1, Y: 1, Z: 1}, nil
	}
	for _, v := range []float64{c.X, c.Y, c.Z} {
		if v == 0 {
			return Correction{}, ConfigurationError{Object: name,
				Reason: fmt.Sprintf("correction components must be nonzero, got %+v", c)}
		}
	}
	return c, nil
}

// Name returns the frame's name.
func (f *Frame) Name() string { return f.name }

// Parent returns the enclosing frame, nil for roots.
func (f *Frame) Parent() *Frame { return f.parent }

// Zero returns the frame origin in container coordinates.
func (f *Frame) Zero() Position { return f.zero }

// SetZero replaces the frame origin in container coordinates.
func (f *Frame) SetZero(p Position) { f.zero = p }

// UpdateZero sets only the provided origin components, leaving nil ones
// unchanged.
func (f *Frame) UpdateZero(x, y, z *float64) {
	if x != nil {
		f.zero.X = *x
	}
	if y != nil {
		f.zero.Y = *y
	}
	if z != nil {
		f.zero.Z = *z
	}
}

// Flip returns the frame's axis flips.
func (f *Frame) Flip() Flip { return f.flip }

// UpdateFlip multiplies the current flips with fl.
func (f *Frame) UpdateFlip(fl Flip) error {
	fl, err := normalizeFlip(f.name, fl)
	if err != nil {
		return err
	}
	f.flip = Flip{X: f.flip.X * fl.X, Y: f.flip.Y * fl.Y, Z: f.flip.Z * fl.Z}
	return nil
}

// Correction returns the scale corrections.
func (f *Frame) Correction() Correction { return f.corr }

// SetCorrection replaces the scale corrections.
func (f *Frame) SetCorrection(c Correction) error {
	c, err := normalizeCorrection(f.name, c)
	if err != nil {
		return err
	}
	f.corr = c
	return nil
}

// UpdateCorrection multiplies the current corrections with c, the form a
// calibration refinement takes after a well has been measured.
func (f *Frame) UpdateCorrection(c Correction) error {
	c, err := normalizeCorrection(f.name, c)
	if err != nil {
		return err
	}
	f.corr = Correction{X: f.corr.X * c.X, Y: f.corr.Y * c.Y, Z: f.corr.Z * c.Z}
	return nil
}

// Tilt returns the tilt plane coefficients.
func (f *Frame) Tilt() Tilt { return f.tilt }

// SetTilt replaces the tilt plane coefficients.
func (f *Frame) SetTilt(t Tilt) { f.tilt = t }

// SlopeCorrection is the z offset induced by sample tilt at (x, y) in this
// frame's coordinates.  A zero z slope means no tilt is configured and the
// offset is zero.
func (f *Frame) SlopeCorrection(x, y float64) float64 {
	if f.tilt.SlopeZ == 0 {
		return 0
	}
	return (f.tilt.Offset - x*f.tilt.SlopeX - y*f.tilt.SlopeY) / f.tilt.SlopeZ
}

// ToParent converts a position in this frame's coordinates to container
// coordinates: undo flip and scale correction, add the tilt offset evaluated
// at the flipped/corrected xy, then translate by the origin.
func (f *Frame) ToParent(x, y, z float64) (float64, float64, float64) {
	u, v := f.toParentXY(x, y)
	w := z * float64(f.flip.Z) / f.corr.Z
	return u + f.zero.X, v + f.zero.Y, w + f.zero.Z + f.SlopeCorrection(u, v)
}

// ToParentXY is ToParent for instruments that address focus independently of
// xy; z and the tilt correction are skipped entirely.
func (f *Frame) ToParentXY(x, y float64) (float64, float64) {
	u, v := f.toParentXY(x, y)
	return u + f.zero.X, v + f.zero.Y
}

func (f *Frame) toParentXY(x, y float64) (float64, float64) {
	return x * float64(f.flip.X) / f.corr.X, y * float64(f.flip.Y) / f.corr.Y
}

// FromParent converts container coordinates to this frame's coordinates:
// translate by the origin, apply flip and scale correction, then subtract
// the tilt offset evaluated at the resulting object xy.
func (f *Frame) FromParent(x, y, z float64) (float64, float64, float64) {
	xo, yo := f.FromParentXY(x, y)
	zo := (z - f.zero.Z) * float64(f.flip.Z) * f.corr.Z
	return xo, yo, zo - f.SlopeCorrection(xo, yo)
}

// FromParentXY is FromParent with z skipped.
func (f *Frame) FromParentXY(x, y float64) (float64, float64) {
	return (x - f.zero.X) * float64(f.flip.X) * f.corr.X,
		(y - f.zero.Y) * float64(f.flip.Y) * f.corr.Y
}

// ToRoot folds ToParent along the parent chain, yielding absolute stage
// coordinates.
func (f *Frame) ToRoot(x, y, z float64) (float64, float64, float64) {
	for n := f; n != nil; n = n.parent {
		x, y, z = n.ToParent(x, y, z)
	}
	return x, y, z
}

// ToRootXY folds ToParentXY along the parent chain.
func (f *Frame) ToRootXY(x, y float64) (float64, float64) {
	for n := f; n != nil; n = n.parent {
		x, y = n.ToParentXY(x, y)
	}
	return x, y
}

// FromRoot converts absolute stage coordinates to this frame's coordinates,
// applying FromParent from the root down.
func (f *Frame) FromRoot(x, y, z float64) (float64, float64, float64) {
	for _, n := range f.rootChain() {
		x, y, z = n.FromParent(x, y, z)
	}
	return x, y, z
}

// FromRootXY is FromRoot with z skipped.
func (f *Frame) FromRootXY(x, y float64) (float64, float64) {
	for _, n := range f.rootChain() {
		x, y = n.FromParentXY(x, y)
	}
	return x, y
}

// rootChain lists the frames from the root down to and including f.
func (f *Frame) rootChain() []*Frame {
	var chain []*Frame
	for n := f; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// AbsZero returns the frame origin in absolute stage coordinates.
func (f *Frame) AbsZero() (float64, float64, float64) {
	return f.ToRoot(0, 0, 0)
}

// SetSafe sets the retreat position in this frame's coordinates.  Nil clears
// it, falling back to the container's.
func (f *Frame) SetSafe(p *Position) {
	if p == nil {
		f.safe = nil
		return
	}
	q := *p
	f.safe = &q
}

// Safe resolves the retreat position, walking ancestors when unset locally.
func (f *Frame) Safe() (Position, bool) {
	for n := f; n != nil; n = n.parent {
		if n.safe != nil {
			return *n.safe, true
		}
	}
	return Position{}, false
}

// SetReferenceObject attaches another frame whose reference position is
// inherited.  Setting it while an explicit reference position exists is an
// ambiguous configuration; it is kept but diagnosed, and the object takes
// precedence.
func (f *Frame) SetReferenceObject(o *Frame) {
	if o != nil && f.refPos != nil {
		log.Printf("sample: %q has both a reference position and reference object %q; the object takes precedence",
			f.name, o.name)
	}
	f.refObject = o
}

// SetReferencePosition sets the explicit reference position.  Diagnosed as
// ambiguous when a reference object is already reachable.
func (f *Frame) SetReferencePosition(p Position) {
	if ro := f.ReferenceObject(); ro != nil && ro != f {
		log.Printf("sample: %q already inherits reference object %q; avoid mixing reference positions and objects",
			f.name, ro.name)
	}
	q := p
	f.refPos = &q
}

// ReferenceObject resolves the reference object, walking ancestors when none
// is attached locally.
func (f *Frame) ReferenceObject() *Frame {
	for n := f; n != nil; n = n.parent {
		if n.refObject != nil {
			return n.refObject
		}
	}
	return nil
}

// ReferencePosition resolves the reference position used for parfocality
// correction.  A reachable reference object wins over a local explicit
// position; neither set reports ok == false.
func (f *Frame) ReferencePosition() (Position, bool) {
	if ro := f.ReferenceObject(); ro != nil && ro != f {
		if f.refPos != nil {
			log.Printf("sample: %q has reference positions and reference object %q; using the object",
				f.name, ro.name)
		}
		return ro.ReferencePosition()
	}
	if f.refPos != nil {
		return *f.refPos, true
	}
	return Position{}, false
}

// SetHardware replaces the frame's hardware ids.
func (f *Frame) SetHardware(hw HardwareIDs) { f.hw = hw }

// StageID resolves the stage id, inherited from the nearest ancestor that
// defines one.  The remaining id accessors resolve the same way.
func (f *Frame) StageID() string {
	return f.resolveID(func(h HardwareIDs) string { return h.Stage })
}

// FocusID resolves the focus drive id.
func (f *Frame) FocusID() string {
	return f.resolveID(func(h HardwareIDs) string { return h.FocusDrive })
}

// AutoFocusID resolves the autofocus id.
func (f *Frame) AutoFocusID() string {
	return f.resolveID(func(h HardwareIDs) string { return h.AutoFocus })
}

// ObjectiveChangerID resolves the objective changer id.
func (f *Frame) ObjectiveChangerID() string {
	return f.resolveID(func(h HardwareIDs) string { return h.ObjectiveChanger })
}

// SafetyID resolves the safety area id.
func (f *Frame) SafetyID() string {
	return f.resolveID(func(h HardwareIDs) string { return h.Safety })
}

// CameraIDs resolves the camera set.
func (f *Frame) CameraIDs() []string {
	for n := f; n != nil; n = n.parent {
		if len(n.hw.Cameras) > 0 {
			return n.hw.Cameras
		}
	}
	return nil
}

func (f *Frame) resolveID(pick func(HardwareIDs) string) string {
	for n := f; n != nil; n = n.parent {
		if id := pick(n.hw); id != "" {
			return id
		}
	}
	return ""
}
