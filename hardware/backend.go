package hardware

// Backend is the narrow interface to the vendor control software.  The
// engine never talks to instruments directly; a backend adapter (ZEN,
// Slidebook, or the mock) implements these three calls.
type Backend interface {
	// CheckAndInitialize verifies one component and, when actions are
	// given, attempts the listed initialization steps.  It reports
	// whether the component ended up ready.  An error means the backend
	// itself failed to communicate, not that the component is unready.
	CheckAndInitialize(componentID string, kind ComponentKind, actions []Action, referenceID string) (bool, error)

	// GetPosition returns the current absolute stage and focus position
	// in um, corrected for parcentricity and parfocality.
	GetPosition(stageID, focusID string) (x, y, z float64, err error)

	// MoveTo moves stage and focus to an absolute position in um and
	// returns the position reached.  When load is true the focus drive
	// goes to its load position before the xy move.
	MoveTo(stageID, focusID string, x, y, z float64, referenceID string, load bool) (rx, ry, rz float64, err error)
}

// Prompter surfaces a blocking operator prompt.  The engine never formats
// its own dialogs; the UI layer decides how to present the message.  The
// returned bool is false when the operator declines or cancels.
type Prompter interface {
	Prompt(title, message string, allowCancel bool) (bool, error)
}
