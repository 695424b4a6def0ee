package hardware

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// State of the controller for the most recent request.
type State int

const (
	Unchecked State = iota
	Checking
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Checking:
		return "checking"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrAborted is returned when the operator cancels a readiness prompt.
// Callers must treat it as fatal for the current acquisition and unwind to
// the workflow boundary.
var ErrAborted = errors.New("hardware: aborted by operator")

// NotReadyError reports that initialization attempts are exhausted.
type NotReadyError struct {
	Experiment string
	Failed     []string
	Attempts   int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("hardware: not ready for experiment %q after %d attempts, failed components: %s",
		e.Experiment, e.Attempts, strings.Join(e.Failed, ", "))
}

// Result holds per-component readiness plus the overall verdict, the AND of
// all checked components.
type Result struct {
	Components map[string]bool
	Microscope bool
}

func (r Result) failed() []string {
	var out []string
	for id, ok := range r.Components {
		if !ok {
			out = append(out, id)
		}
	}
	return out
}

// Controller verifies and initializes hardware before acquisitions.  It is
// deliberately not safe for concurrent use: there is one stage and one focus
// drive, so exactly one logical thread of control may drive a microscope.
// Serialize access externally (see server/middleware/locker) if a
// multi-threaded surface sits on top.
type Controller struct {
	Backend  Backend
	Prompter Prompter

	// Pace spaces repeated initialization attempts.  The default backs
	// off exponentially; tests substitute backoff.ZeroBackOff.
	Pace backoff.BackOff

	state State
}

// NewController returns a controller with the default retry pacing.
func NewController(b Backend, p Prompter) *Controller {
	return &Controller{
		Backend:  b,
		Prompter: p,
		Pace: &backoff.ExponentialBackOff{
			InitialInterval:     250 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         5 * time.Second,
			MaxElapsedTime:      0,
			Clock:               backoff.SystemClock},
	}
}

// State reports the outcome of the most recent Ready call.
func (c *Controller) State() State {
	return c.state
}

// Ready runs the readiness request.  With MakeReady set it attempts
// initialization up to Trials times total, surfacing an operator prompt
// between attempts when a Prompter is attached; without MakeReady it
// performs a single diagnostic sweep with no corrective actions.  The
// returned Result is valid in both the ready and the not-ready case.
func (c *Controller) Ready(req Request, flags Flags) (Result, error) {
	c.state = Checking
	trials := flags.Trials
	if trials < 1 {
		trials = 1
	}

	var res Result
	if !flags.MakeReady {
		res = c.sweep(req, false)
		if !res.Microscope {
			c.state = Failed
			return res, &NotReadyError{Experiment: req.Experiment, Failed: res.failed(), Attempts: 1}
		}
		c.state = Ready
		return res, nil
	}

	attempt := func() error {
		res = c.sweep(req, true)
		if res.Microscope {
			return nil
		}
		if c.Prompter != nil {
			proceed, err := c.Prompter.Prompt(
				"Microscope not ready",
				fmt.Sprintf("Components %s failed initialization for experiment %q. Adjust the microscope and retry?",
					strings.Join(res.failed(), ", "), req.Experiment),
				true)
			if err != nil {
				return backoff.Permanent(err)
			}
			if !proceed {
				return backoff.Permanent(ErrAborted)
			}
		}
		return fmt.Errorf("components not ready: %s", strings.Join(res.failed(), ", "))
	}

	pace := c.Pace
	if pace == nil {
		pace = backoff.NewExponentialBackOff()
	}
	pace.Reset()
	err := backoff.Retry(attempt, backoff.WithMaxRetries(pace, uint64(trials-1)))
	if err != nil {
		c.state = Failed
		if errors.Is(err, ErrAborted) {
			return res, ErrAborted
		}
		return res, &NotReadyError{Experiment: req.Experiment, Failed: res.failed(), Attempts: trials}
	}
	c.state = Ready
	return res, nil
}

// sweep checks every component in request order once.  Actions are stripped
// when corrective initialization is not allowed.
func (c *Controller) sweep(req Request, makeReady bool) Result {
	res := Result{Components: make(map[string]bool, len(req.Components))}
	all := true
	for _, comp := range req.Components {
		actions := comp.Actions
		if !makeReady {
			actions = nil
		}
		ok, err := c.Backend.CheckAndInitialize(comp.ID, comp.Kind, actions, req.ReferenceID)
		if err != nil {
			log.Printf("hardware: backend error checking %s %q: %v", comp.Kind, comp.ID, err)
			ok = false
		}
		res.Components[comp.ID] = ok
		all = all && ok
	}
	res.Microscope = all
	return res
}
