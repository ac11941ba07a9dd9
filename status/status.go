// Package status tracks the outcome of a single test-case invocation: its
// identity, its sub-test bookkeeping, its timing and its disposition state
// machine. A test function creates one Status, initializes it against the
// run Options, iterates its sub-tests through NextSubtest, records outcomes
// through Pass and Fail, and returns it to the runner, which materializes
// the final verdict through Dispose.
package status

import (
	"fmt"
	"time"

	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/ui"
)

// Status is the per-test-case result record. The zero value carries the
// Aborted disposition and a failing result; only Initialize moves it into a
// usable state.
type Status struct {
	// opts is a non-owning reference; the caller keeps it alive for the
	// whole test.
	opts *options.Options

	group       int
	groupName   string
	caseNum     int
	caseName    string
	subtest     int
	subtestName string

	// result holds the most recent Pass/Fail flag. It is advisory;
	// errorCount is the authoritative pass signal.
	result      bool
	errorCount  int
	firstFailed int

	disposition Disposition

	startTime time.Time
	endTime   time.Time
}

// New returns a bare Status. Its disposition is Aborted until Initialize
// succeeds.
func New() *Status {
	return &Status{}
}

// Initialize binds the Status to its Options and identity, stamps the start
// time, and applies the group/case selection filters. It returns
// proceed=true when the test body should run. A filter rejection is not an
// error: proceed is false, the disposition becomes DidNotTest and the test
// counts as a pass. Invalid arguments leave the disposition at Aborted.
//
// Calling Initialize again with identical arguments yields the identical
// outcome; the counters reset each time.
func (s *Status) Initialize(opts *options.Options, group, caseNum int, groupName, caseName string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("status: Initialize on nil Status")
	}
	// The start time is stamped before validation so even a rejected test
	// has a meaningful timestamp in the report.
	s.startTime = time.Now()

	if opts == nil {
		return false, fmt.Errorf("status: Initialize requires options")
	}
	if groupName == "" || caseName == "" {
		return false, fmt.Errorf("status: Initialize requires group and case names")
	}
	if group <= 0 || caseNum <= 0 {
		return false, fmt.Errorf("status: group %d and case %d must be positive", group, caseNum)
	}

	s.opts = opts
	s.group = group
	s.groupName = groupName
	s.caseNum = caseNum
	s.caseName = caseName
	s.subtest = 0
	s.subtestName = ""
	s.errorCount = 0
	s.firstFailed = 0
	s.result = true
	s.endTime = time.Time{}

	if !selected(opts.Group(), opts.GroupName(), group, groupName) ||
		!selected(opts.Case(), opts.CaseName(), caseNum, caseName) {
		s.disposition = DidNotTest
		return false, nil
	}

	s.disposition = Continue

	if opts.Summarize() {
		// Enumeration mode: one line per selected case; NextSubtest emits
		// the sub-test lines underneath it.
		fmt.Fprintf(opts.Session().Out, "%sgroup %d %q / case %d %q\n",
			ui.BuildTreePrefix(1, false, nil), group, groupName, caseNum, caseName)
	}
	return true, nil
}

// selected applies the two-tier filter rule: a non-zero number must match
// exactly; failing that, a non-empty name must match exactly; otherwise
// everything is selected.
func selected(wantNum int, wantName string, num int, name string) bool {
	if wantNum != 0 {
		return wantNum == num
	}
	if wantName != "" {
		return wantName == name
	}
	return true
}

// NextSubtest advances to the next sub-test and reports whether its body
// should execute. The counter increments on every call regardless of the
// outcome, so sub-test numbers are stable whether or not a filter is in
// effect.
//
// In summarize mode the body never executes; the call emits one listing
// line instead, which is how a battery enumerates its tests without running
// them.
func (s *Status) NextSubtest(name string) bool {
	if s == nil {
		return false
	}
	s.subtest++
	s.subtestName = name

	if s.opts.Summarize() {
		out := s.opts.Session().Out
		prefix := ui.BuildTreePrefix(2, false, nil)
		fmt.Fprintf(out, "%ssub-test %d %q (group %d case %d)\n",
			prefix, s.subtest, name, s.group, s.caseNum)
		return false
	}

	if !selected(s.opts.Subtest(), s.opts.SubtestName(), s.subtest, name) {
		return false
	}

	if s.opts.ShowProgress() && s.opts.ShowStepNumbers() {
		fmt.Fprintf(s.opts.Session().Out, "  step %d: %s\n", s.subtest, name)
	}
	return true
}

// Pass records the outcome of the current sub-test. A false flag increments
// the cumulative error count and, on the first failure only, records the
// failing sub-test number. Passing later never erases an earlier failure:
// the test as a whole passes iff the error count ends at zero.
func (s *Status) Pass(flag bool) {
	if s == nil {
		return
	}
	s.result = flag
	if !flag {
		s.errorCount++
		if s.firstFailed == 0 {
			s.firstFailed = s.subtest
		}
	}
}

// Fail records a failed sub-test. Equivalent to Pass(false).
func (s *Status) Fail() {
	s.Pass(false)
}

// Passed reports whether the test has passed so far: true iff no sub-test
// has failed. The last Pass flag does not matter.
func (s *Status) Passed() bool {
	return s != nil && s.errorCount == 0
}

// Result returns the most recent Pass/Fail flag. Prefer Passed for the
// overall verdict.
func (s *Status) Result() bool {
	return s != nil && s.result
}

// ErrorCount returns the cumulative count of failed sub-tests.
func (s *Status) ErrorCount() int {
	if s == nil {
		return 0
	}
	return s.errorCount
}

// FirstFailedSubtest returns the number of the first failing sub-test, or 0
// when none has failed. The value is sticky for the life of the Status.
func (s *Status) FirstFailedSubtest() int {
	if s == nil {
		return 0
	}
	return s.firstFailed
}

// SubtestCount returns how many sub-tests have been entered so far.
func (s *Status) SubtestCount() int {
	if s == nil {
		return 0
	}
	return s.subtest
}

// Group returns the test's group number, 0 before initialization.
func (s *Status) Group() int {
	if s == nil {
		return 0
	}
	return s.group
}

// GroupName returns the test's group name.
func (s *Status) GroupName() string {
	if s == nil {
		return ""
	}
	return s.groupName
}

// Case returns the test's case number, 0 before initialization.
func (s *Status) Case() int {
	if s == nil {
		return 0
	}
	return s.caseNum
}

// CaseName returns the test's case description.
func (s *Status) CaseName() string {
	if s == nil {
		return ""
	}
	return s.caseName
}

// SubtestName returns the name passed to the most recent NextSubtest call.
func (s *Status) SubtestName() string {
	if s == nil {
		return ""
	}
	return s.subtestName
}

// Options returns the Options this Status was initialized with. It may be
// nil for a bare Status.
func (s *Status) Options() *options.Options {
	if s == nil {
		return nil
	}
	return s.opts
}

// Disposition returns the current control-flow outcome.
func (s *Status) Disposition() Disposition {
	if s == nil {
		return Aborted
	}
	return s.disposition
}

// SetDisposition moves the state machine. Test bodies normally reach this
// through Skip, Quit, Abort or the prompt protocol.
func (s *Status) SetDisposition(d Disposition) {
	if s != nil {
		s.disposition = d
	}
}

// Skip marks the test deliberately skipped; it will count as a pass.
func (s *Status) Skip() {
	s.SetDisposition(DidNotTest)
}

// Quit asks the run loop to stop after this test; the test counts as a pass.
func (s *Status) Quit() {
	s.SetDisposition(Quitted)
}

// Abort asks the run loop to stop after this test; the test counts as a
// failure.
func (s *Status) Abort() {
	s.SetDisposition(Aborted)
}

// Dispose materializes the final verdict from the disposition. It returns
// the pass flag and whether the run loop should stop. The runner calls it
// exactly once per test.
func (s *Status) Dispose() (ok, stop bool) {
	if s == nil {
		return false, true
	}
	switch s.disposition {
	case Continue:
		ok = s.errorCount == 0 && !s.opts.ForceFailure()
		return ok, false
	case DidNotTest:
		s.result = true
		return true, false
	case Failed:
		s.result = false
		return false, false
	case Quitted:
		s.result = true
		return true, true
	case Aborted:
		s.result = false
		return false, true
	default:
		s.result = false
		return false, true
	}
}

// IsOkay reports whether the Status is in an acceptable state: no failed
// sub-tests and no failing disposition. Quitted counts as okay; a
// user-directed stop is not a failure, matching how Dispose scores it.
func (s *Status) IsOkay() bool {
	if s == nil {
		return false
	}
	switch s.disposition {
	case Continue, DidNotTest, Quitted:
		return s.errorCount == 0
	default:
		return false
	}
}

// Finish stamps the end time. The runner calls it when the test function
// returns.
func (s *Status) Finish() {
	if s != nil {
		s.endTime = time.Now()
	}
}

// StartTime returns when Initialize stamped the test start.
func (s *Status) StartTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.startTime
}

// Duration returns the elapsed time between Initialize and Finish. Before
// Finish it measures up to now.
func (s *Status) Duration() time.Duration {
	if s == nil || s.startTime.IsZero() {
		return 0
	}
	if s.endTime.IsZero() {
		return time.Since(s.startTime)
	}
	return s.endTime.Sub(s.startTime)
}

// ResetCountsForTest clears the error count, first-failure record and result
// flag. It exists so the framework's own test suite can exercise the
// counting logic without accumulating state; production test bodies have no
// business calling it.
func (s *Status) ResetCountsForTest() {
	if s == nil {
		return
	}
	s.errorCount = 0
	s.firstFailed = 0
	s.result = true
}
