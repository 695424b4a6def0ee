package sample

import (
	"errors"
	"fmt"
	"math"

	"github.com/aics-microscopy/goscope/hardware"
	"github.com/aics-microscopy/goscope/tiling"
)

// Kind identifies what a tree node physically is.
type Kind int

const (
	KindPlateHolder Kind = iota
	KindPlate
	KindSlide
	KindWell
	KindColony
	KindCell
	KindSample
	KindBarcode
	KindBackground
	KindImmersionDelivery
)

func (k Kind) String() string {
	switch k {
	case KindPlateHolder:
		return "plate_holder"
	case KindPlate:
		return "plate"
	case KindSlide:
		return "slide"
	case KindWell:
		return "well"
	case KindColony:
		return "colony"
	case KindCell:
		return "cell"
	case KindSample:
		return "sample"
	case KindBarcode:
		return "barcode"
	case KindBackground:
		return "background"
	case KindImmersionDelivery:
		return "immersion_delivery"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrNoController is returned by movement operations when no object on the
// holder chain carries a hardware controller.
var ErrNoController = errors.New("sample: no hardware controller attached")

// HierarchyError reports an attempt to attach an object below an
// incompatible container.
type HierarchyError struct {
	Child  string
	Kind   Kind
	Parent string
	Into   Kind
}

func (e HierarchyError) Error() string {
	return fmt.Sprintf("sample: cannot add %s %q to %s %q", e.Kind, e.Child, e.Into, e.Parent)
}

// Counter hands out sequential ids for auto-named objects of one kind, so
// that cells segmented across wells get unique stable names within a session.
type Counter struct {
	prefix string
	next   int
}

// NewCounter returns a counter producing prefix_0001, prefix_0002, ...
func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

// Next returns the next name in the sequence.
func (c *Counter) Next() string {
	c.next++
	return fmt.Sprintf("%s_%04d", c.prefix, c.next)
}

// Object is one node of the sample tree.  It embeds its coordinate Frame and
// adds identity, containment and hardware delegation.  Only plate holders
// carry a controller; every descendant reaches the hardware through its
// holder chain.
type Object struct {
	*Frame

	kind     Kind
	parent   *Object
	children []*Object

	ctl *hardware.Controller

	// Payload fields; which ones are meaningful depends on kind.
	diameter float64
	barcode  string
	cellLine string
	clone    string
}

// allowedParents maps each kind to the container kinds it may be placed in.
// A nil entry means the kind is a root.
var allowedParents = map[Kind][]Kind{
	KindPlateHolder:       nil,
	KindPlate:             {KindPlateHolder},
	KindSlide:             {KindPlateHolder},
	KindWell:              {KindPlate},
	KindColony:            {KindWell},
	KindCell:              {KindColony, KindWell},
	KindSample:            {KindWell, KindColony, KindSlide},
	KindBarcode:           {KindPlate, KindSlide},
	KindBackground:        {KindPlate, KindWell},
	KindImmersionDelivery: {KindPlateHolder},
}

func newObject(kind Kind, parent *Object, cfg FrameConfig) (*Object, error) {
	allowed := allowedParents[kind]
	if parent == nil {
		if allowed != nil {
			return nil, HierarchyError{Child: cfg.Name, Kind: kind}
		}
	} else {
		ok := false
		for _, k := range allowed {
			if parent.kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return nil, HierarchyError{Child: cfg.Name, Kind: kind, Parent: parent.Name(), Into: parent.kind}
		}
	}

	var pf *Frame
	if parent != nil {
		pf = parent.Frame
	}
	f, err := NewFrame(pf, cfg)
	if err != nil {
		return nil, err
	}
	o := &Object{Frame: f, kind: kind, parent: parent}
	if parent != nil {
		parent.children = append(parent.children, o)
	}
	return o, nil
}

// NewPlateHolder creates a root object owning the hardware controller.
func NewPlateHolder(ctl *hardware.Controller, cfg FrameConfig) (*Object, error) {
	o, err := newObject(KindPlateHolder, nil, cfg)
	if err != nil {
		return nil, err
	}
	o.ctl = ctl
	return o, nil
}

// NewPlate creates a plate below a plate holder.
func NewPlate(holder *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindPlate, holder, cfg)
}

// NewSlide creates a slide below a plate holder.
func NewSlide(holder *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindSlide, holder, cfg)
}

// NewWell creates a well below a plate.  Diameter is the nominal well
// diameter in um, used for tile coverage and calibration.
func NewWell(plate *Object, cfg FrameConfig, diameter float64) (*Object, error) {
	o, err := newObject(KindWell, plate, cfg)
	if err != nil {
		return nil, err
	}
	o.diameter = diameter
	return o, nil
}

// NewColony creates a colony inside a well.
func NewColony(well *Object, cfg FrameConfig, cellLine, clone string) (*Object, error) {
	o, err := newObject(KindColony, well, cfg)
	if err != nil {
		return nil, err
	}
	o.cellLine = cellLine
	o.clone = clone
	return o, nil
}

// NewCell creates a cell, auto-named from counter when cfg.Name is empty.
func NewCell(container *Object, cfg FrameConfig, counter *Counter) (*Object, error) {
	if cfg.Name == "" && counter != nil {
		cfg.Name = counter.Next()
	}
	return newObject(KindCell, container, cfg)
}

// NewSample creates a generic sample object.
func NewSample(container *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindSample, container, cfg)
}

// NewBarcode creates a barcode region on a plate or slide.
func NewBarcode(container *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindBarcode, container, cfg)
}

// NewBackground creates a background reference region.
func NewBackground(container *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindBackground, container, cfg)
}

// NewImmersionDelivery creates the water immersion delivery site on the
// plate holder.
func NewImmersionDelivery(holder *Object, cfg FrameConfig) (*Object, error) {
	return newObject(KindImmersionDelivery, holder, cfg)
}

// Kind returns the object's kind.
func (o *Object) Kind() Kind { return o.kind }

// Container returns the enclosing object, nil for roots.
func (o *Object) Container() *Object { return o.parent }

// Children returns the contained objects in creation order.
func (o *Object) Children() []*Object { return o.children }

// Find returns the first descendant (depth first, pre-order) with the given
// name, or nil.
func (o *Object) Find(name string) *Object {
	if o.Name() == name {
		return o
	}
	for _, c := range o.children {
		if m := c.Find(name); m != nil {
			return m
		}
	}
	return nil
}

// Holder walks up to the plate holder root.
func (o *Object) Holder() *Object {
	n := o
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Controller resolves the hardware controller through the holder chain.
func (o *Object) Controller() *hardware.Controller {
	return o.Holder().ctl
}

// Diameter returns the nominal diameter for wells, zero otherwise.
func (o *Object) Diameter() float64 { return o.diameter }

// SetDiameter updates the nominal diameter.
func (o *Object) SetDiameter(d float64) { o.diameter = d }

// Barcode returns the decoded barcode string, if read.
func (o *Object) Barcode() string { return o.barcode }

// SetBarcode stores a decoded barcode.
func (o *Object) SetBarcode(b string) { o.barcode = b }

// CellLine returns the colony's cell line.
func (o *Object) CellLine() string { return o.cellLine }

// Clone returns the colony's clone id.
func (o *Object) Clone() string { return o.clone }

// AbsPosition reads the current stage and focus position in absolute stage
// coordinates.
func (o *Object) AbsPosition() (float64, float64, float64, error) {
	ctl := o.Controller()
	if ctl == nil {
		return 0, 0, 0, ErrNoController
	}
	return ctl.Backend.GetPosition(o.StageID(), o.FocusID())
}

// ObjectPosition reads the current stage position expressed in this object's
// coordinates.
func (o *Object) ObjectPosition() (float64, float64, float64, error) {
	x, y, z, err := o.AbsPosition()
	if err != nil {
		return 0, 0, 0, err
	}
	x, y, z = o.FromRoot(x, y, z)
	return x, y, z, nil
}

// MoveToXYZ moves stage and focus to a position given in this object's
// coordinates and returns the reached position, also in object coordinates.
func (o *Object) MoveToXYZ(x, y, z float64, load bool) (float64, float64, float64, error) {
	ctl := o.Controller()
	if ctl == nil {
		return 0, 0, 0, ErrNoController
	}
	ax, ay, az := o.ToRoot(x, y, z)
	var refID string
	if ro := o.ReferenceObject(); ro != nil {
		refID = ro.Name()
	}
	rx, ry, rz, err := ctl.Backend.MoveTo(o.StageID(), o.FocusID(), ax, ay, az, refID, load)
	if err != nil {
		return 0, 0, 0, err
	}
	rx, ry, rz = o.FromRoot(rx, ry, rz)
	return rx, ry, rz, nil
}

// MoveToZero moves to the object's origin.
func (o *Object) MoveToZero(load bool) (float64, float64, float64, error) {
	return o.MoveToXYZ(0, 0, 0, load)
}

// MoveDelta moves by an offset relative to the current position, in object
// coordinates.
func (o *Object) MoveDelta(dx, dy, dz float64, load bool) (float64, float64, float64, error) {
	x, y, z, err := o.ObjectPosition()
	if err != nil {
		return 0, 0, 0, err
	}
	return o.MoveToXYZ(x+dx, y+dy, z+dz, load)
}

// MoveToRPhi moves to polar coordinates around the object origin; phi is in
// degrees, counterclockwise from +x.  Focus stays at the origin height.
func (o *Object) MoveToRPhi(r, phiDeg float64, load bool) (float64, float64, float64, error) {
	phi := phiDeg * math.Pi / 180
	return o.MoveToXYZ(r*math.Cos(phi), r*math.Sin(phi), 0, load)
}

// MoveToSafe retreats to the nearest configured safe position.  The safe
// position is stored in the coordinates of the frame that defines it, so the
// move is issued from that frame.
func (o *Object) MoveToSafe(load bool) (float64, float64, float64, error) {
	ctl := o.Controller()
	if ctl == nil {
		return 0, 0, 0, ErrNoController
	}
	for n := o.Frame; n != nil; n = n.Parent() {
		if p, ok := safeLocal(n); ok {
			ax, ay, az := n.ToRoot(p.X, p.Y, p.Z)
			rx, ry, rz, err := ctl.Backend.MoveTo(o.StageID(), o.FocusID(), ax, ay, az, "", load)
			if err != nil {
				return 0, 0, 0, err
			}
			rx, ry, rz = o.FromRoot(rx, ry, rz)
			return rx, ry, rz, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("sample: no safe position configured above %q", o.Name())
}

func safeLocal(f *Frame) (Position, bool) {
	if f.safe == nil {
		return Position{}, false
	}
	return *f.safe, true
}

// TilePositions validates and expands a tile layout centered on this
// object's origin, in object coordinates.
func (o *Object) TilePositions(spec tiling.Spec) ([]tiling.Position, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec.Positions(tiling.Position{}), nil
}

// MicroscopeIsReady builds and runs a readiness request scoped to this
// object's hardware ids.  The reference id passed to the backend is the name
// of the resolved reference object, if any.
func (o *Object) MicroscopeIsReady(experiment string, flags hardware.Flags) (hardware.Result, error) {
	ctl := o.Controller()
	if ctl == nil {
		return hardware.Result{}, ErrNoController
	}
	ids := hardware.ComponentIDs{
		Stage:            o.StageID(),
		FocusDrive:       o.FocusID(),
		ObjectiveChanger: o.ObjectiveChangerID(),
		AutoFocus:        o.AutoFocusID(),
		Safety:           o.SafetyID(),
	}
	var refID string
	if ro := o.ReferenceObject(); ro != nil {
		refID = ro.Name()
	}
	req := hardware.BuildRequest(experiment, ids, flags, refID)
	return ctl.Ready(req, flags)
}
