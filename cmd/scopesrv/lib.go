package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/theckman/yacspin"

	"github.com/aics-microscopy/goscope/hardware"
	"github.com/aics-microscopy/goscope/sample"
	"github.com/aics-microscopy/goscope/scopehttp"
	"github.com/aics-microscopy/goscope/server"
	"github.com/aics-microscopy/goscope/server/middleware/locker"
)

// stdinPrompter asks the operator on the terminal whether to retry after a
// failed readiness sweep.
type stdinPrompter struct{}

func (stdinPrompter) Prompt(title, message string, allowCancel bool) (bool, error) {
	fmt.Printf("\n%s\n%s\n", title, message)
	if allowCancel {
		fmt.Print("[y/N] > ")
	} else {
		fmt.Print("[press enter] > ")
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	if !allowCancel {
		return true, nil
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// initialSweep runs a diagnostic readiness pass before the server starts
// taking requests, with a spinner so the operator knows the hardware is
// being probed and not hung.
func initialSweep(tree *sample.Object, ctl *hardware.Controller) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " checking microscope",
		SuffixAutoColon: true,
		StopCharacter:   "done",
	})
	if err != nil {
		return err
	}
	spinner.Start()
	_, err = tree.MicroscopeIsReady("startup", hardware.Flags{Trials: 1})
	if err != nil {
		spinner.StopFail()
		var nre *hardware.NotReadyError
		if errors.As(err, &nre) {
			// degraded hardware at startup is worth a warning, not a
			// refusal; the readiness API reports it per request
			fmt.Printf("microscope not ready at startup: %v\n", nre)
			return nil
		}
		return err
	}
	spinner.Stop()
	return nil
}

// BuildMux assembles the HTTP surface: request logging, the acquisition
// lock, and the scope routes.
func BuildMux(tree *sample.Object) chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.Logger)

	lock := locker.New()
	mux.Use(lock.Check)

	scope := scopehttp.New(tree)
	locker.Inject(scope, lock)
	server.Bind(mux, "/scope", scope)
	return mux
}
