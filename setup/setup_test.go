package setup_test

import (
	"testing"

	"github.com/aics-microscopy/goscope/sample"
	"github.com/aics-microscopy/goscope/setup"
)

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := setup.Parse([]byte(`
Addr: ":9000"
Holder:
  Stage: "CustomStage"
Plates:
  - Name: "zsd_plate"
    Format: "24"
    ZeroX: 100
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("addr %q", cfg.Addr)
	}
	if cfg.Holder.Stage != "CustomStage" {
		t.Errorf("stage %q", cfg.Holder.Stage)
	}
	// untouched defaults survive the overlay
	if cfg.Holder.FocusDrive != "MotorizedFocus" {
		t.Errorf("focus drive %q", cfg.Holder.FocusDrive)
	}
	if len(cfg.Plates) != 1 || cfg.Plates[0].Format != "24" {
		t.Errorf("plates %+v", cfg.Plates)
	}
}

func TestBuildDefaultTree(t *testing.T) {
	root, ctl, err := setup.Build(setup.Default(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ctl == nil || root.Controller() != ctl {
		t.Fatal("controller not attached to the root")
	}
	if root.Kind() != sample.KindPlateHolder {
		t.Errorf("root kind %v", root.Kind())
	}
	plate := root.Find("plate_01")
	if plate == nil {
		t.Fatal("plate_01 missing")
	}
	if got := len(plate.Children()); got != 96 {
		t.Errorf("expected 96 wells, got %d", got)
	}
	if w := plate.Find("H12"); w == nil {
		t.Error("H12 missing")
	}
	if got := plate.Find("A1").StageID(); got != "Marzhauser" {
		t.Errorf("well stage id %q", got)
	}
}

func TestBuildRequiresBackendWithoutMock(t *testing.T) {
	cfg := setup.Default()
	cfg.Mock = false
	if _, _, err := setup.Build(cfg, nil, nil); err == nil {
		t.Fatal("expected an error with no backend and Mock false")
	}
}
