package tiling_test

import (
	"math"
	"testing"

	"github.com/aics-microscopy/goscope/tiling"
)

func positionsEqual(a, b []tiling.Position, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > tol ||
			math.Abs(a[i].Y-b[i].Y) > tol ||
			math.Abs(a[i].Z-b[i].Z) > tol {
			return false
		}
	}
	return true
}

func TestNoneReturnsCenter(t *testing.T) {
	s := tiling.Spec{Shape: tiling.None}
	got := s.Positions(tiling.Position{X: 1, Y: 2, Z: 3})
	want := []tiling.Position{{X: 1, Y: 2, Z: 3}}
	if !positionsEqual(got, want, 0) {
		t.Errorf("expected %v got %v", want, got)
	}
}

func TestRectangleTwoByOne(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Rectangle, NX: 2, NY: 1, PitchX: 100, PitchY: 100}
	got := s.Positions(tiling.Position{})
	want := []tiling.Position{{X: -50}, {X: 50}}
	if !positionsEqual(got, want, 1e-9) {
		t.Errorf("expected %v got %v", want, got)
	}
}

func TestRectangleCount(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Rectangle, NX: 4, NY: 4, PitchX: 10, PitchY: 10}
	got := s.Positions(tiling.Position{})
	if len(got) != 16 {
		t.Errorf("expected 16 positions, got %d", len(got))
	}
}

func TestEllipseContainment(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Ellipse, NX: 4, NY: 4, PitchX: 10, PitchY: 10}
	a := float64(s.NX) * s.PitchX / 2
	b := float64(s.NY) * s.PitchY / 2
	got := s.Positions(tiling.Position{})
	if len(got) == 0 {
		t.Fatal("ellipse produced no positions")
	}
	for _, p := range got {
		v := (p.X/a)*(p.X/a) + (p.Y/b)*(p.Y/b)
		if v > 1+1e-9 {
			t.Errorf("position (%f, %f) outside ellipse, value %f", p.X, p.Y, v)
		}
	}
}

func TestDeterminism(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Ellipse, NX: 5, NY: 3, PitchX: 7, PitchY: 13, RotationDeg: 30}
	c := tiling.Position{X: 100, Y: -40, Z: 2}
	first := s.Positions(c)
	second := s.Positions(c)
	if !positionsEqual(first, second, 0) {
		t.Error("identical spec and center produced different position lists")
	}
}

func TestRotationZeroIsIdentity(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Rectangle, NX: 3, NY: 2, PitchX: 10, PitchY: 20}
	plain := s.Positions(tiling.Position{})
	s.RotationDeg = 0
	again := s.Positions(tiling.Position{})
	if !positionsEqual(plain, again, 0) {
		t.Error("rotation of 0 degrees changed positions")
	}
}

func TestRotationNinetyDegrees(t *testing.T) {
	s := tiling.Spec{Shape: tiling.Rectangle, NX: 2, NY: 2, PitchX: 10, PitchY: 10}
	plain := s.Positions(tiling.Position{})
	s.RotationDeg = 90
	rotated := s.Positions(tiling.Position{})
	for i, p := range plain {
		want := tiling.Position{X: -p.Y, Y: p.X}
		if math.Abs(rotated[i].X-want.X) > 1e-9 || math.Abs(rotated[i].Y-want.Y) > 1e-9 {
			t.Errorf("at %d: expected (%f, %f) got (%f, %f)",
				i, want.X, want.Y, rotated[i].X, rotated[i].Y)
		}
	}
}

func TestValidate(t *testing.T) {
	bad := tiling.Spec{Shape: tiling.Rectangle, NX: 0, NY: 2}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero tile count")
	}
	ok := tiling.Spec{Shape: tiling.None}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error for shape none: %v", err)
	}
}

func TestExportAppliesObjectiveOffset(t *testing.T) {
	positions := []tiling.Position{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	records := tiling.Export("well_A1", positions, 10, -20)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "well_A1_0000" {
		t.Errorf("unexpected name %s", records[0].Name)
	}
	if records[0].X != 11 || records[0].Y != -18 || records[0].Z != 3 {
		t.Errorf("offset not applied to x/y only: %+v", records[0])
	}
}
