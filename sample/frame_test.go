package sample_test

import (
	"errors"
	"math"
	"testing"

	"github.com/aics-microscopy/goscope/sample"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mustFrame(t *testing.T, parent *sample.Frame, cfg sample.FrameConfig) *sample.Frame {
	t.Helper()
	f, err := sample.NewFrame(parent, cfg)
	if err != nil {
		t.Fatalf("NewFrame(%s): %v", cfg.Name, err)
	}
	return f
}

func TestRoundTrip(t *testing.T) {
	plate := mustFrame(t, nil, sample.FrameConfig{
		Name:       "plate",
		Zero:       sample.Position{X: 14000, Y: 11000, Z: 104},
		Flip:       sample.Flip{X: 1, Y: -1, Z: 1},
		Correction: sample.Correction{X: 1.02, Y: 0.98, Z: 1},
	})
	well := mustFrame(t, plate, sample.FrameConfig{
		Name: "A1",
		Zero: sample.Position{X: 220, Y: -180, Z: 2},
	})

	x, y, z := 123.4, -56.7, 8.9
	ax, ay, az := well.ToRoot(x, y, z)
	bx, by, bz := well.FromRoot(ax, ay, az)
	if !approx(bx, x) || !approx(by, y) || !approx(bz, z) {
		t.Errorf("round trip (%g, %g, %g) -> (%g, %g, %g)", x, y, z, bx, by, bz)
	}
}

func TestFlipMirrorsAxis(t *testing.T) {
	f := mustFrame(t, nil, sample.FrameConfig{
		Name: "mirrored",
		Flip: sample.Flip{X: -1, Y: 1, Z: 1},
	})
	x, y, _ := f.ToParent(10, 20, 0)
	if !approx(x, -10) || !approx(y, 20) {
		t.Errorf("expected (-10, 20), got (%g, %g)", x, y)
	}
}

func TestTiltSlopeCorrection(t *testing.T) {
	f := mustFrame(t, nil, sample.FrameConfig{
		Name: "tilted",
		Tilt: sample.Tilt{SlopeX: 1, SlopeY: 0, SlopeZ: 1, Offset: 10},
	})
	if got := f.SlopeCorrection(5, 0); !approx(got, 5) {
		t.Errorf("slope correction at (5, 0): expected 5, got %g", got)
	}
	// no tilt configured means zero correction, not a division by zero
	flat := mustFrame(t, nil, sample.FrameConfig{Name: "flat"})
	if got := flat.SlopeCorrection(5, 0); got != 0 {
		t.Errorf("flat frame correction: expected 0, got %g", got)
	}
}

func TestTiltAppliedToParentZ(t *testing.T) {
	f := mustFrame(t, nil, sample.FrameConfig{
		Name: "tilted",
		Zero: sample.Position{Z: 100},
		Tilt: sample.Tilt{SlopeX: 1, SlopeY: 0, SlopeZ: 1, Offset: 10},
	})
	_, _, z := f.ToParent(5, 0, 0)
	if !approx(z, 105) {
		t.Errorf("expected z 105, got %g", z)
	}
	// the xy-only path must not consult tilt at all
	x, y := f.ToParentXY(5, 0)
	if !approx(x, 5) || !approx(y, 0) {
		t.Errorf("xy transform altered: (%g, %g)", x, y)
	}
}

func TestZeroCorrectionRejected(t *testing.T) {
	_, err := sample.NewFrame(nil, sample.FrameConfig{
		Name:       "broken",
		Correction: sample.Correction{X: 1, Y: 0, Z: 1},
	})
	var cerr sample.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestBadFlipRejected(t *testing.T) {
	_, err := sample.NewFrame(nil, sample.FrameConfig{
		Name: "broken",
		Flip: sample.Flip{X: 2, Y: 1, Z: 1},
	})
	var cerr sample.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestUpdateZeroPartial(t *testing.T) {
	f := mustFrame(t, nil, sample.FrameConfig{
		Name: "f",
		Zero: sample.Position{X: 1, Y: 2, Z: 3},
	})
	nx := 10.0
	f.UpdateZero(&nx, nil, nil)
	z := f.Zero()
	if z.X != 10 || z.Y != 2 || z.Z != 3 {
		t.Errorf("expected (10, 2, 3), got %+v", z)
	}
}

func TestUpdateCorrectionMultiplies(t *testing.T) {
	f := mustFrame(t, nil, sample.FrameConfig{
		Name:       "f",
		Correction: sample.Correction{X: 2, Y: 2, Z: 1},
	})
	if err := f.UpdateCorrection(sample.Correction{X: 0.5, Y: 2, Z: 1}); err != nil {
		t.Fatal(err)
	}
	c := f.Correction()
	if !approx(c.X, 1) || !approx(c.Y, 4) || !approx(c.Z, 1) {
		t.Errorf("expected (1, 4, 1), got %+v", c)
	}
}

func TestSafeInheritsFromContainer(t *testing.T) {
	holder := mustFrame(t, nil, sample.FrameConfig{
		Name: "holder",
		Safe: &sample.Position{X: 50000, Y: 1000, Z: 0},
	})
	well := mustFrame(t, holder, sample.FrameConfig{Name: "A1"})
	p, ok := well.Safe()
	if !ok || p.X != 50000 {
		t.Errorf("expected inherited safe position, got %+v ok=%v", p, ok)
	}

	lonely := mustFrame(t, nil, sample.FrameConfig{Name: "lonely"})
	if _, ok := lonely.Safe(); ok {
		t.Error("expected no safe position")
	}
}

func TestHardwareIDInheritance(t *testing.T) {
	holder := mustFrame(t, nil, sample.FrameConfig{
		Name: "holder",
		Hardware: sample.HardwareIDs{
			Stage:      "Marzhauser",
			FocusDrive: "MotorizedFocus",
			Safety:     "ZSD_01_plate",
		},
	})
	well := mustFrame(t, holder, sample.FrameConfig{
		Name:     "A1",
		Hardware: sample.HardwareIDs{Safety: "ZSD_01_immersion"},
	})
	if got := well.StageID(); got != "Marzhauser" {
		t.Errorf("stage id: expected inherited Marzhauser, got %q", got)
	}
	if got := well.SafetyID(); got != "ZSD_01_immersion" {
		t.Errorf("safety id: expected local override, got %q", got)
	}
	if got := well.AutoFocusID(); got != "" {
		t.Errorf("autofocus id: expected empty, got %q", got)
	}
}

func TestReferenceObjectWinsOverPosition(t *testing.T) {
	ref := mustFrame(t, nil, sample.FrameConfig{
		Name:      "ref_well",
		Reference: &sample.Position{X: 1, Y: 2, Z: 3},
	})
	f := mustFrame(t, nil, sample.FrameConfig{
		Name:      "f",
		Reference: &sample.Position{X: 9, Y: 9, Z: 9},
	})
	f.SetReferenceObject(ref)
	p, ok := f.ReferencePosition()
	if !ok || p.X != 1 || p.Y != 2 || p.Z != 3 {
		t.Errorf("expected the reference object's position, got %+v ok=%v", p, ok)
	}
}

func TestReferenceObjectInherited(t *testing.T) {
	ref := mustFrame(t, nil, sample.FrameConfig{
		Name:      "ref_well",
		Reference: &sample.Position{Z: 42},
	})
	holder := mustFrame(t, nil, sample.FrameConfig{Name: "holder"})
	holder.SetReferenceObject(ref)
	well := mustFrame(t, holder, sample.FrameConfig{Name: "A1"})
	if ro := well.ReferenceObject(); ro != ref {
		t.Fatalf("expected inherited reference object, got %v", ro)
	}
	p, ok := well.ReferencePosition()
	if !ok || p.Z != 42 {
		t.Errorf("expected z 42 from reference object, got %+v ok=%v", p, ok)
	}
}
