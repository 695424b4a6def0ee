// Package hardware decides whether the microscope subsystems needed for an
// acquisition are initialized and safe to use.  It models the components the
// engine cares about (stage, focus drive, objective changer, autofocus,
// safety area), builds readiness requests for them in a fixed order, and
// drives initialization through a vendor-neutral Backend with bounded
// retries.
package hardware

import "fmt"

// ComponentKind identifies a class of microscope hardware.
type ComponentKind int

const (
	Stage ComponentKind = iota
	FocusDrive
	ObjectiveChanger
	AutoFocus
	Safety
	Camera
	Pump
)

func (k ComponentKind) String() string {
	switch k {
	case Stage:
		return "stage"
	case FocusDrive:
		return "focus drive"
	case ObjectiveChanger:
		return "objective changer"
	case AutoFocus:
		return "autofocus"
	case Safety:
		return "safety"
	case Camera:
		return "camera"
	case Pump:
		return "pump"
	}
	return fmt.Sprintf("ComponentKind(%d)", int(k))
}

// Action is one initialization step a component may need before use.  The
// strings match the vendor macro vocabulary and cross the Backend boundary
// verbatim.
type Action string

const (
	// ActionSetLoad defines the focus drive load position, used to pull
	// the objective away from the sample before stage motion.
	ActionSetLoad Action = "set_load"

	// ActionSetWork defines the focus drive work position.
	ActionSetWork Action = "set_work"

	// ActionSetReference initializes parfocality/parcentricity offsets
	// on the objective changer against the reference object.
	ActionSetReference Action = "set_reference"

	// ActionFindSurface runs the autofocus surface search.
	ActionFindSurface Action = "find_surface"

	// ActionNoFindSurface initializes the autofocus without a surface
	// search, keeping the stored focus position.
	ActionNoFindSurface Action = "no_find_surface"
)

// ComponentIDs holds the hardware ids that apply to one sample object, after
// inheritance along its container chain has been resolved.  Empty ids mean
// the microscope has no such component and the entry is skipped.
type ComponentIDs struct {
	Stage            string
	FocusDrive       string
	ObjectiveChanger string
	AutoFocus        string
	Safety           string
}

// ComponentRequest pairs a component with the initialization actions the
// current operation requires of it.
type ComponentRequest struct {
	ID      string
	Kind    ComponentKind
	Actions []Action
}

// Request is a readiness check for one acquisition step.
type Request struct {
	// Experiment names the acquisition settings in the vendor software.
	Experiment string

	// ReferenceID names the sample object used to correct the xyz offset
	// between objectives; empty if no reference applies.
	ReferenceID string

	// Components lists the components to verify, in the order they must
	// be checked.
	Components []ComponentRequest
}

// Flags modify how a readiness request is built and executed.
type Flags struct {
	// Load requests the focus drive load position before stage moves.
	Load bool

	// UseReference requests parfocality initialization on the objective
	// changer.
	UseReference bool

	// UseAutoFocus requests autofocus initialization (without a surface
	// search; the stored surface is reused).
	UseAutoFocus bool

	// MakeReady allows corrective initialization.  When false the
	// controller performs a single diagnostic sweep with no actions and
	// no retries.
	MakeReady bool

	// Trials is the total number of initialization attempts before the
	// controller gives up.  Values below 1 are treated as 1.
	Trials int
}

// BuildRequest resolves flags and component ids into a Request.  The order
// is fixed: stage, focus drive, objective changer, autofocus, safety.  The
// objective changer must come before the autofocus because the autofocus
// reference depends on the mounted objective, and the focus drive load
// position must be defined before any stage motion.
func BuildRequest(experiment string, ids ComponentIDs, flags Flags, referenceID string) Request {
	req := Request{Experiment: experiment, ReferenceID: referenceID}
	add := func(id string, kind ComponentKind, actions ...Action) {
		if id == "" {
			return
		}
		req.Components = append(req.Components, ComponentRequest{ID: id, Kind: kind, Actions: actions})
	}
	add(ids.Stage, Stage)
	if flags.Load {
		add(ids.FocusDrive, FocusDrive, ActionSetLoad)
	} else {
		add(ids.FocusDrive, FocusDrive)
	}
	if flags.UseReference {
		add(ids.ObjectiveChanger, ObjectiveChanger, ActionSetReference)
	} else {
		add(ids.ObjectiveChanger, ObjectiveChanger)
	}
	if flags.UseAutoFocus {
		add(ids.AutoFocus, AutoFocus, ActionNoFindSurface)
	} else {
		add(ids.AutoFocus, AutoFocus)
	}
	add(ids.Safety, Safety)
	return req
}
