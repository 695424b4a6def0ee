package hardware

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// MockBackend emulates the vendor control software for tests and for the
// simulated server mode.  It records the order components are checked in,
// which the readiness tests use to pin the stage → focus → objective changer
// → autofocus → safety ordering.
type MockBackend struct {
	// CallOrder accumulates component ids in the order they were checked.
	CallOrder []string

	// ActionLog accumulates the actions requested per check, parallel to
	// CallOrder.
	ActionLog [][]Action

	// Fail lists component ids that always report not ready.
	Fail map[string]bool

	// FailFirst makes a component fail its first n checks, emulating
	// hardware that comes up after operator adjustment.
	FailFirst map[string]int

	// Area guards MoveTo; zero value disables the check.
	Area SafetyArea

	checks  map[string]int
	x, y, z float64
	settle  *rate.Limiter
	hasArea bool
}

// NewMockBackend returns a mock with stage motion paced at one move per
// millisecond to emulate settle time.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Fail:      make(map[string]bool),
		FailFirst: make(map[string]int),
		checks:    make(map[string]int),
		settle:    rate.NewLimiter(rate.Every(time.Millisecond), 1),
	}
}

// SetArea enables safety checking on MoveTo.
func (m *MockBackend) SetArea(a SafetyArea) {
	m.Area = a
	m.hasArea = true
}

// Checks returns how many times a component has been checked.
func (m *MockBackend) Checks(componentID string) int {
	return m.checks[componentID]
}

// CheckAndInitialize implements Backend.
func (m *MockBackend) CheckAndInitialize(componentID string, kind ComponentKind, actions []Action, referenceID string) (bool, error) {
	m.CallOrder = append(m.CallOrder, componentID)
	m.ActionLog = append(m.ActionLog, actions)
	m.checks[componentID]++
	if m.Fail[componentID] {
		return false, nil
	}
	if n := m.FailFirst[componentID]; n > 0 && m.checks[componentID] <= n {
		return false, nil
	}
	return true, nil
}

// GetPosition implements Backend.
func (m *MockBackend) GetPosition(stageID, focusID string) (float64, float64, float64, error) {
	return m.x, m.y, m.z, nil
}

// MoveTo implements Backend.  The move completes instantaneously after the
// settle interval has elapsed.
func (m *MockBackend) MoveTo(stageID, focusID string, x, y, z float64, referenceID string, load bool) (float64, float64, float64, error) {
	if m.hasArea && !m.Area.IsSafePosition(x, y, z) {
		return m.x, m.y, m.z, &CrashDangerError{Area: m.Area.ID, X: x, Y: y, Z: z}
	}
	if err := m.settle.Wait(context.Background()); err != nil {
		return m.x, m.y, m.z, err
	}
	m.x, m.y, m.z = x, y, z
	return m.x, m.y, m.z, nil
}
