package hardware_test

import (
	"errors"
	"testing"

	"github.com/cenkalti/backoff"

	"github.com/aics-microscopy/goscope/hardware"
)

var testIDs = hardware.ComponentIDs{
	Stage:            "Marzhauser",
	FocusDrive:       "MotorizedFocus",
	ObjectiveChanger: "6xMotorizedNosepiece",
	AutoFocus:        "DefiniteFocus2",
	Safety:           "ZSD_01_plate",
}

func newTestController(b hardware.Backend) *hardware.Controller {
	c := hardware.NewController(b, nil)
	c.Pace = &backoff.ZeroBackOff{}
	return c
}

func TestRequestOrder(t *testing.T) {
	mock := hardware.NewMockBackend()
	c := newTestController(mock)
	req := hardware.BuildRequest("ScanWell_10x", testIDs,
		hardware.Flags{Load: true, UseReference: true, UseAutoFocus: true, MakeReady: true, Trials: 1}, "")
	if _, err := c.Ready(req, hardware.Flags{MakeReady: true, Trials: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Marzhauser", "MotorizedFocus", "6xMotorizedNosepiece", "DefiniteFocus2", "ZSD_01_plate"}
	if len(mock.CallOrder) != len(want) {
		t.Fatalf("expected %d checks, got %d (%v)", len(want), len(mock.CallOrder), mock.CallOrder)
	}
	for i, id := range want {
		if mock.CallOrder[i] != id {
			t.Errorf("check %d: expected %s got %s", i, id, mock.CallOrder[i])
		}
	}
}

func TestObjectiveChangerBeforeAutoFocus(t *testing.T) {
	mock := hardware.NewMockBackend()
	c := newTestController(mock)
	ids := hardware.ComponentIDs{ObjectiveChanger: "nosepiece", AutoFocus: "df2"}
	req := hardware.BuildRequest("exp", ids,
		hardware.Flags{UseReference: true, UseAutoFocus: true}, "ref_well")
	if _, err := c.Ready(req, hardware.Flags{MakeReady: true, Trials: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var objIdx, afIdx int
	for i, id := range mock.CallOrder {
		switch id {
		case "nosepiece":
			objIdx = i
		case "df2":
			afIdx = i
		}
	}
	if objIdx >= afIdx {
		t.Errorf("objective changer checked at %d, after autofocus at %d", objIdx, afIdx)
	}
}

func TestActionsFollowFlags(t *testing.T) {
	req := hardware.BuildRequest("exp", testIDs,
		hardware.Flags{Load: true, UseReference: false, UseAutoFocus: true}, "")
	byID := map[string][]hardware.Action{}
	for _, comp := range req.Components {
		byID[comp.ID] = comp.Actions
	}
	if len(byID["Marzhauser"]) != 0 {
		t.Errorf("stage should have no actions, got %v", byID["Marzhauser"])
	}
	if len(byID["MotorizedFocus"]) != 1 || byID["MotorizedFocus"][0] != hardware.ActionSetLoad {
		t.Errorf("expected focus drive set_load, got %v", byID["MotorizedFocus"])
	}
	if len(byID["6xMotorizedNosepiece"]) != 0 {
		t.Errorf("expected no objective changer actions without use_reference, got %v", byID["6xMotorizedNosepiece"])
	}
	if len(byID["DefiniteFocus2"]) != 1 || byID["DefiniteFocus2"][0] != hardware.ActionNoFindSurface {
		t.Errorf("expected autofocus no_find_surface, got %v", byID["DefiniteFocus2"])
	}
}

func TestRetryExhaustion(t *testing.T) {
	mock := hardware.NewMockBackend()
	mock.Fail["DefiniteFocus2"] = true
	c := newTestController(mock)
	req := hardware.BuildRequest("exp", testIDs, hardware.Flags{UseAutoFocus: true}, "")
	_, err := c.Ready(req, hardware.Flags{MakeReady: true, Trials: 3})
	var nre *hardware.NotReadyError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if nre.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", nre.Attempts)
	}
	if got := mock.Checks("DefiniteFocus2"); got != 3 {
		t.Errorf("expected exactly 3 backend checks, got %d", got)
	}
	if c.State() != hardware.Failed {
		t.Errorf("expected state failed, got %v", c.State())
	}
}

func TestRecoveryAfterAdjustment(t *testing.T) {
	mock := hardware.NewMockBackend()
	mock.FailFirst["MotorizedFocus"] = 2
	c := newTestController(mock)
	req := hardware.BuildRequest("exp", testIDs, hardware.Flags{Load: true}, "")
	res, err := c.Ready(req, hardware.Flags{MakeReady: true, Trials: 3})
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if !res.Microscope {
		t.Error("expected overall ready")
	}
	if c.State() != hardware.Ready {
		t.Errorf("expected state ready, got %v", c.State())
	}
}

type cancelPrompter struct{ calls int }

func (p *cancelPrompter) Prompt(title, message string, allowCancel bool) (bool, error) {
	p.calls++
	return false, nil
}

func TestOperatorAbort(t *testing.T) {
	mock := hardware.NewMockBackend()
	mock.Fail["Marzhauser"] = true
	p := &cancelPrompter{}
	c := hardware.NewController(mock, p)
	c.Pace = &backoff.ZeroBackOff{}
	req := hardware.BuildRequest("exp", testIDs, hardware.Flags{}, "")
	_, err := c.Ready(req, hardware.Flags{MakeReady: true, Trials: 5})
	if !errors.Is(err, hardware.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("expected a single prompt before abort, got %d", p.calls)
	}
	if got := mock.Checks("Marzhauser"); got != 1 {
		t.Errorf("expected a single check before abort, got %d", got)
	}
}

func TestDiagnosticSweepSendsNoActions(t *testing.T) {
	mock := hardware.NewMockBackend()
	mock.Fail["DefiniteFocus2"] = true
	c := newTestController(mock)
	req := hardware.BuildRequest("exp", testIDs,
		hardware.Flags{Load: true, UseReference: true, UseAutoFocus: true}, "")
	res, err := c.Ready(req, hardware.Flags{MakeReady: false, Trials: 3})
	if err == nil {
		t.Fatal("expected NotReadyError from diagnostic sweep")
	}
	if res.Components["DefiniteFocus2"] {
		t.Error("failing component reported ready")
	}
	if got := mock.Checks("DefiniteFocus2"); got != 1 {
		t.Errorf("diagnostic sweep must not retry, got %d checks", got)
	}
	for i, actions := range mock.ActionLog {
		if len(actions) != 0 {
			t.Errorf("check %d carried actions %v in diagnostic mode", i, actions)
		}
	}
}

func TestSkipsMissingComponents(t *testing.T) {
	req := hardware.BuildRequest("exp", hardware.ComponentIDs{Stage: "stage1"}, hardware.Flags{Load: true}, "")
	if len(req.Components) != 1 {
		t.Fatalf("expected only the stage, got %d components", len(req.Components))
	}
	if req.Components[0].ID != "stage1" {
		t.Errorf("unexpected component %s", req.Components[0].ID)
	}
}
