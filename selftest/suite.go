// Package selftest is the battery framework's own test battery: plain test
// functions that exercise the options, status and registry/runner packages
// through the public contract only. The cmd/battery binary loads and runs
// them; the framework proves itself with itself.
package selftest

import (
	"fmt"
	"io"
	"strings"

	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/status"
)

// Group numbers and names. Case numbers are unique within a group and
// stable, so --group/--case filters stay meaningful across releases.
const (
	GroupOptions     = 1
	GroupOptionsName = "options"

	GroupStatus     = 2
	GroupStatusName = "status"

	GroupRunner     = 3
	GroupRunnerName = "runner"
)

// AdditionalHelp documents the battery's groups for the usage text.
const AdditionalHelp = `self-test groups:
   1  options   configuration record, validation, side-effect setters
   2  status    disposition machine, sub-test protocol, prompts
   3  runner    registry loading, run loop, aggregation`

// LoadAll registers every self-test onto reg, in group order.
func LoadAll(reg *registry.Registry) error {
	all := [][]registry.TestFunc{
		optionsTests(),
		statusTests(),
		runnerTests(),
	}
	for _, group := range all {
		for _, fn := range group {
			if err := reg.Load(fn); err != nil {
				return fmt.Errorf("selftest: %w", err)
			}
		}
	}
	return nil
}

// begin is the shared test prologue: build a Status, initialize it against
// the run options, and report whether the body should execute.
func begin(opts *options.Options, group, caseNum int, groupName, caseName string) (*status.Status, bool) {
	st := status.New()
	proceed, err := st.Initialize(opts, group, caseNum, groupName, caseName)
	if err != nil {
		st.Abort()
		return st, false
	}
	return st, proceed
}

// quietOptions builds the throwaway configuration the self-tests hand to
// the objects under test, with all output routed to nowhere.
func quietOptions() *options.Options {
	o := options.New()
	o.SetShowProgress(false)
	o.SetSilent(true)
	o.SetSession(discardSession(""))
	return o
}

// discardSession returns a Session with canned input and discarded output.
func discardSession(input string) *options.Session {
	return &options.Session{In: strings.NewReader(input), Out: io.Discard}
}
