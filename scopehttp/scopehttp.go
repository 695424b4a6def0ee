// Package scopehttp exposes a sample tree and its hardware controller over
// HTTP.  Object selection is by name via the "object" query parameter;
// omitting it addresses the plate holder root.
package scopehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"net/http"

	"github.com/aics-microscopy/goscope/hardware"
	"github.com/aics-microscopy/goscope/sample"
	"github.com/aics-microscopy/goscope/server"
	"github.com/aics-microscopy/goscope/tiling"
)

// Scope is the HTTP interface over one microscope.
type Scope struct {
	Root *sample.Object
	Ctl  *hardware.Controller

	rt server.RouteTable
}

// New returns a Scope wrapping a sample tree.
func New(root *sample.Object) *Scope {
	s := &Scope{Root: root, Ctl: root.Controller()}
	s.rt = server.RouteTable{
		{Method: http.MethodGet, Path: "/pos"}:              s.GetPos,
		{Method: http.MethodPost, Path: "/pos"}:             s.SetPos,
		{Method: http.MethodPost, Path: "/pos/safe"}:        s.MoveSafe,
		{Method: http.MethodGet, Path: "/readiness"}:        s.GetReadiness,
		{Method: http.MethodPost, Path: "/readiness/check"}: s.CheckReadiness,
		{Method: http.MethodPost, Path: "/tiles"}:           s.Tiles,
		{Method: http.MethodGet, Path: "/objects"}:          s.Objects,
		{Method: http.MethodGet, Path: "/snapshot"}:         s.SnapshotYAML,
	}
	return s
}

// RT implements server.HTTPer.
func (s *Scope) RT() server.RouteTable {
	return s.rt
}

func (s *Scope) object(w http.ResponseWriter, r *http.Request) *sample.Object {
	name := r.URL.Query().Get("object")
	if name == "" {
		return s.Root
	}
	o := s.Root.Find(name)
	if o == nil {
		http.Error(w, fmt.Sprintf("no object named %q", name), http.StatusNotFound)
	}
	return o
}

// GetPos returns the current position in the selected object's coordinates.
func (s *Scope) GetPos(w http.ResponseWriter, r *http.Request) {
	o := s.object(w, r)
	if o == nil {
		return
	}
	x, y, z, err := o.ObjectPosition()
	if err != nil {
		server.InternalError(w, err)
		return
	}
	respondXYZ(w, x, y, z)
}

type moveT struct {
	server.XYZT
	Load bool `json:"load"`
}

// SetPos moves to a position given in the selected object's coordinates and
// returns the reached position.
func (s *Scope) SetPos(w http.ResponseWriter, r *http.Request) {
	o := s.object(w, r)
	if o == nil {
		return
	}
	var m moveT
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		server.BadRequest(w, err)
		return
	}
	defer r.Body.Close()
	x, y, z, err := o.MoveToXYZ(m.X, m.Y, m.Z, m.Load)
	if err != nil {
		var cerr *hardware.CrashDangerError
		if errors.As(err, &cerr) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		server.InternalError(w, err)
		return
	}
	respondXYZ(w, x, y, z)
}

// MoveSafe retreats to the nearest configured safe position.
func (s *Scope) MoveSafe(w http.ResponseWriter, r *http.Request) {
	o := s.object(w, r)
	if o == nil {
		return
	}
	x, y, z, err := o.MoveToSafe(true)
	if err != nil {
		server.InternalError(w, err)
		return
	}
	respondXYZ(w, x, y, z)
}

// GetReadiness returns the controller state from the last readiness check.
func (s *Scope) GetReadiness(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: s.Ctl.State().String()}
	hp.EncodeAndRespond(w, r)
}

type readinessT struct {
	Experiment   string `json:"experiment"`
	Load         bool   `json:"load"`
	UseReference bool   `json:"use_reference"`
	UseAutoFocus bool   `json:"use_autofocus"`
	MakeReady    bool   `json:"make_ready"`
	Trials       int    `json:"trials"`
}

type readinessResponseT struct {
	Microscope bool            `json:"microscope"`
	Components map[string]bool `json:"components"`
	Error      string          `json:"error,omitempty"`
}

// CheckReadiness runs a readiness request scoped to the selected object and
// returns the per-component verdicts.
func (s *Scope) CheckReadiness(w http.ResponseWriter, r *http.Request) {
	o := s.object(w, r)
	if o == nil {
		return
	}
	var req readinessT
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, err)
		return
	}
	defer r.Body.Close()
	res, err := o.MicroscopeIsReady(req.Experiment, hardware.Flags{
		Load:         req.Load,
		UseReference: req.UseReference,
		UseAutoFocus: req.UseAutoFocus,
		MakeReady:    req.MakeReady,
		Trials:       req.Trials,
	})
	if errors.Is(err, hardware.ErrAborted) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	resp := readinessResponseT{Microscope: res.Microscope, Components: res.Components}
	if err != nil {
		resp.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type tilesT struct {
	Shape       string  `json:"shape"`
	NX          int     `json:"nx"`
	NY          int     `json:"ny"`
	PitchX      float64 `json:"pitch_x"`
	PitchY      float64 `json:"pitch_y"`
	RotationDeg float64 `json:"rotation_deg"`
}

// Tiles expands a tile layout centered on the selected object and returns
// the positions in object coordinates.
func (s *Scope) Tiles(w http.ResponseWriter, r *http.Request) {
	o := s.object(w, r)
	if o == nil {
		return
	}
	var req tilesT
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, err)
		return
	}
	defer r.Body.Close()
	shape, err := tiling.ParseShape(req.Shape)
	if err != nil {
		server.BadRequest(w, err)
		return
	}
	pos, err := o.TilePositions(tiling.Spec{
		Shape:       shape,
		NX:          req.NX,
		NY:          req.NY,
		PitchX:      req.PitchX,
		PitchY:      req.PitchY,
		RotationDeg: req.RotationDeg,
	})
	if err != nil {
		server.BadRequest(w, err)
		return
	}
	out := make([]server.XYZT, len(pos))
	for i, p := range pos {
		out[i] = server.XYZT{X: p.X, Y: p.Y, Z: p.Z}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type objectT struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Container string `json:"container,omitempty"`
}

// Objects lists every object in the tree, pre-order.
func (s *Scope) Objects(w http.ResponseWriter, r *http.Request) {
	var out []objectT
	var walk func(o *sample.Object)
	walk = func(o *sample.Object) {
		t := objectT{Name: o.Name(), Kind: o.Kind().String()}
		if o.Container() != nil {
			t.Container = o.Container().Name()
		}
		out = append(out, t)
		for _, c := range o.Children() {
			walk(c)
		}
	}
	walk(s.Root)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// SnapshotYAML streams the session snapshot as YAML.
func (s *Scope) SnapshotYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	if err := sample.EncodeSnapshot(w, sample.Snapshot(s.Root)); err != nil {
		server.InternalError(w, err)
	}
}

func respondXYZ(w http.ResponseWriter, x, y, z float64) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(server.XYZT{X: x, Y: y, Z: z})
}
