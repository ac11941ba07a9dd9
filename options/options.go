// Package options holds the run configuration for a test battery.
//
// An Options value is parsed once from the command line (see the flags
// package), then treated as read-only by every other component. The only
// sanctioned mutation after parsing is the runner copying the current test
// number in for display purposes.
//
// Every getter tolerates a nil receiver and returns a fixed default; every
// setter validates its argument and reports failure through an error return.
// Nothing in this package panics.
package options

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// MaxTestNumber is the exclusive upper bound for group and case
	// selection numbers. Values at or above it are rejected.
	MaxTestNumber = 1_000_000

	// MaxSubtestNumber is the inclusive upper bound for the sub-test filter.
	MaxSubtestNumber = 1000

	// MaxSleepTime caps the between-test pacing delay.
	MaxSleepTime = time.Hour

	// NoCurrentTest is the sentinel meaning "no test is executing".
	NoCurrentTest = -1

	// NoResponse means no prompt response override is in effect.
	NoResponse byte = 0
)

// Valid prompt response characters. Before-prompt responses select a
// disposition for the upcoming action; after-prompt responses declare the
// outcome of a completed action.
const (
	ResponseContinue = 'c'
	ResponseSkip     = 's'
	ResponseQuit     = 'q'
	ResponseAbort    = 'a'
	ResponsePass     = 'p'
	ResponseFail     = 'f'
	ResponseHelp     = 'h'
)

// Session carries the I/O streams and automation overrides used by the
// interactive prompt protocol. It replaces the process-wide auto-response
// state of older test harnesses: a caller that wants deterministic replay of
// the interactive paths sets AutoBefore/AutoAfter on its own Session instead
// of poking globals, so concurrent sessions cannot interfere.
type Session struct {
	In  io.Reader
	Out io.Writer

	// AutoBefore and AutoAfter, when non-zero, answer the before- and
	// after-action prompts without reading from In.
	AutoBefore byte
	AutoAfter  byte

	br *bufio.Reader
}

// NewSession returns a Session bound to the process standard streams.
func NewSession() *Session {
	return &Session{In: os.Stdin, Out: os.Stdout}
}

// ReadLine reads one line of user input, without the trailing newline. The
// underlying buffered reader is kept across calls so consecutive prompts do
// not drop input.
func (s *Session) ReadLine() (string, error) {
	if s == nil || s.In == nil {
		return "", io.EOF
	}
	if s.br == nil {
		s.br = bufio.NewReader(s.In)
	}
	line, err := s.br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line != "" {
		return line, nil
	}
	return line, err
}

// Options is the flat run-configuration record consumed by the registry,
// runner and every Status. The zero value is usable and equals the
// documented defaults; New is provided for symmetry with the other packages.
type Options struct {
	// Identity filters. A non-zero number restricts the run to the matching
	// group/case/sub-test; failing that, a non-empty name does the same by
	// exact string match. Zero and "" mean unrestricted.
	group       int
	groupName   string
	caseNum     int
	caseName    string
	subtest     int
	subtestName string

	verbose         bool
	showValues      bool
	showStepNumbers bool
	showProgress    bool
	stopOnError     bool
	batchMode       bool
	interactive     bool
	beepPrompt      bool
	summarize       bool
	casePause       bool
	needSubtests    bool
	forceFailure    bool
	simulated       bool
	textSynch       bool // reserved, currently unused
	silent          bool
	hideErrors      bool
	serve           bool

	sleepTime   time.Duration
	currentTest int

	responseBefore byte
	responseAfter  byte

	session *Session
}

// New returns an Options with the documented defaults: progress shown, all
// filters unrestricted, non-interactive, no test executing.
func New() *Options {
	return &Options{
		showProgress: true,
		currentTest:  NoCurrentTest,
	}
}

// --- identity filters ---

// Group returns the numeric group filter, 0 when unrestricted or the
// receiver is nil.
func (o *Options) Group() int {
	if o == nil {
		return 0
	}
	return o.group
}

// SetGroup sets the numeric group filter. Out-of-range values reset the
// filter to 0 (unrestricted) and return an error; the stale prior value is
// never left behind.
func (o *Options) SetGroup(n int) error {
	if o == nil {
		return errNilOptions("SetGroup")
	}
	if n < 0 || n >= MaxTestNumber {
		o.group = 0
		return rangeError("group", n, 0, MaxTestNumber-1)
	}
	o.group = n
	return nil
}

// GroupName returns the named group filter, "" when unset.
func (o *Options) GroupName() string {
	if o == nil {
		return ""
	}
	return o.groupName
}

// SetGroupName sets the named group filter. An empty string clears it.
func (o *Options) SetGroupName(name string) error {
	if o == nil {
		return errNilOptions("SetGroupName")
	}
	o.groupName = name
	return nil
}

// Case returns the numeric case filter, 0 when unrestricted.
func (o *Options) Case() int {
	if o == nil {
		return 0
	}
	return o.caseNum
}

// SetCase sets the numeric case filter with the same range rule as SetGroup.
func (o *Options) SetCase(n int) error {
	if o == nil {
		return errNilOptions("SetCase")
	}
	if n < 0 || n >= MaxTestNumber {
		o.caseNum = 0
		return rangeError("case", n, 0, MaxTestNumber-1)
	}
	o.caseNum = n
	return nil
}

// CaseName returns the named case filter, "" when unset.
func (o *Options) CaseName() string {
	if o == nil {
		return ""
	}
	return o.caseName
}

// SetCaseName sets the named case filter. An empty string clears it.
func (o *Options) SetCaseName(name string) error {
	if o == nil {
		return errNilOptions("SetCaseName")
	}
	o.caseName = name
	return nil
}

// Subtest returns the numeric sub-test filter, 0 when unrestricted.
func (o *Options) Subtest() int {
	if o == nil {
		return 0
	}
	return o.subtest
}

// SetSubtest sets the numeric sub-test filter, valid range [0, 1000].
// Out-of-range values leave the field unchanged.
func (o *Options) SetSubtest(n int) error {
	if o == nil {
		return errNilOptions("SetSubtest")
	}
	if n < 0 || n > MaxSubtestNumber {
		return rangeError("sub-test", n, 0, MaxSubtestNumber)
	}
	o.subtest = n
	return nil
}

// SubtestName returns the named sub-test filter, "" when unset.
func (o *Options) SubtestName() string {
	if o == nil {
		return ""
	}
	return o.subtestName
}

// SetSubtestName sets the named sub-test filter. An empty string clears it.
func (o *Options) SetSubtestName(name string) error {
	if o == nil {
		return errNilOptions("SetSubtestName")
	}
	o.subtestName = name
	return nil
}

// --- boolean flags ---

// Verbose reports whether per-step commentary is enabled.
func (o *Options) Verbose() bool { return o != nil && o.verbose }

// SetVerbose toggles per-step commentary.
func (o *Options) SetVerbose(v bool) {
	if o != nil {
		o.verbose = v
	}
}

// ShowValues reports whether tests should print the values they check.
func (o *Options) ShowValues() bool { return o != nil && o.showValues }

// SetShowValues toggles value printing.
func (o *Options) SetShowValues(v bool) {
	if o != nil {
		o.showValues = v
	}
}

// ShowStepNumbers reports whether sub-test step numbers are printed.
func (o *Options) ShowStepNumbers() bool { return o != nil && o.showStepNumbers }

// SetShowStepNumbers toggles step-number printing.
func (o *Options) SetShowStepNumbers(v bool) {
	if o != nil {
		o.showStepNumbers = v
	}
}

// ShowProgress reports whether progress output is enabled at all.
func (o *Options) ShowProgress() bool { return o != nil && o.showProgress }

// SetShowProgress toggles progress output. Turning progress off also turns
// off step numbers, value printing and verbosity in the same call; turning
// it back on restores none of them.
func (o *Options) SetShowProgress(v bool) {
	if o == nil {
		return
	}
	o.showProgress = v
	if !v {
		o.showStepNumbers = false
		o.showValues = false
		o.verbose = false
	}
}

// StopOnError reports whether the run loop stops at the first failed test.
func (o *Options) StopOnError() bool { return o != nil && o.stopOnError }

// SetStopOnError toggles stop-at-first-failure.
func (o *Options) SetStopOnError(v bool) {
	if o != nil {
		o.stopOnError = v
	}
}

// BatchMode reports whether the battery runs unattended.
func (o *Options) BatchMode() bool { return o != nil && o.batchMode }

// SetBatchMode toggles unattended operation. Enabling batch mode arms the
// prompt protocol for hands-off runs: prompts stay enabled but are answered
// automatically (continue before, pass after), and chatty output is
// suppressed. Disabling it has no extra effect.
func (o *Options) SetBatchMode(v bool) {
	if o == nil {
		return
	}
	o.batchMode = v
	if v {
		o.interactive = true
		o.responseBefore = ResponseContinue
		o.responseAfter = ResponsePass
		o.showValues = false
		o.verbose = false
	}
}

// Interactive reports whether the prompt protocol reads from the user.
func (o *Options) Interactive() bool { return o != nil && o.interactive }

// SetInteractive toggles the prompt protocol.
func (o *Options) SetInteractive(v bool) {
	if o != nil {
		o.interactive = v
	}
}

// BeepPrompt reports whether prompts ring the terminal bell.
func (o *Options) BeepPrompt() bool { return o != nil && o.beepPrompt }

// SetBeepPrompt toggles the prompt bell.
func (o *Options) SetBeepPrompt(v bool) {
	if o != nil {
		o.beepPrompt = v
	}
}

// Summarize reports whether the run only enumerates tests instead of
// executing sub-test bodies.
func (o *Options) Summarize() bool { return o != nil && o.summarize }

// SetSummarize toggles enumeration mode. Enabling it also clears
// interactive and case-pause, since neither makes sense for a listing.
func (o *Options) SetSummarize(v bool) {
	if o == nil {
		return
	}
	o.summarize = v
	if v {
		o.interactive = false
		o.casePause = false
	}
}

// CasePause reports whether the runner waits for acknowledgment after each
// test case.
func (o *Options) CasePause() bool { return o != nil && o.casePause }

// SetCasePause toggles the per-case acknowledgment pause.
func (o *Options) SetCasePause(v bool) {
	if o != nil {
		o.casePause = v
	}
}

// NeedSubtests reports whether a test case that never enters a sub-test is a
// protocol violation.
func (o *Options) NeedSubtests() bool { return o != nil && o.needSubtests }

// SetNeedSubtests toggles the sub-test protocol requirement.
func (o *Options) SetNeedSubtests(v bool) {
	if o != nil {
		o.needSubtests = v
	}
}

// ForceFailure reports whether completed tests are reported failed
// regardless of their sub-test outcomes. Used to exercise failure paths.
func (o *Options) ForceFailure() bool { return o != nil && o.forceFailure }

// SetForceFailure toggles forced failure.
func (o *Options) SetForceFailure(v bool) {
	if o != nil {
		o.forceFailure = v
	}
}

// Simulated reports whether tests should avoid real side effects.
func (o *Options) Simulated() bool { return o != nil && o.simulated }

// SetSimulated toggles simulated operation.
func (o *Options) SetSimulated(v bool) {
	if o != nil {
		o.simulated = v
	}
}

// TextSynch is reserved and currently has no effect on the run loop.
func (o *Options) TextSynch() bool { return o != nil && o.textSynch }

// SetTextSynch sets the reserved text-synch flag.
func (o *Options) SetTextSynch(v bool) {
	if o != nil {
		o.textSynch = v
	}
}

// Silent reports whether option-processing output is suppressed.
func (o *Options) Silent() bool { return o != nil && o.silent }

// SetSilent toggles option-processing output suppression.
func (o *Options) SetSilent(v bool) {
	if o != nil {
		o.silent = v
	}
}

// HideErrors reports whether error output is suppressed.
func (o *Options) HideErrors() bool { return o != nil && o.hideErrors }

// SetHideErrors toggles error output suppression.
func (o *Options) SetHideErrors(v bool) {
	if o != nil {
		o.hideErrors = v
	}
}

// Serve reports whether the healthz/metrics servers should run.
func (o *Options) Serve() bool { return o != nil && o.serve }

// SetServe toggles the healthz/metrics servers.
func (o *Options) SetServe(v bool) {
	if o != nil {
		o.serve = v
	}
}

// --- numeric settings ---

// SleepTime returns the pacing delay inserted between test cases.
func (o *Options) SleepTime() time.Duration {
	if o == nil {
		return 0
	}
	return o.sleepTime
}

// SetSleepTimeMS sets the pacing delay in milliseconds, valid range
// [0, 3_600_000]. Out-of-range values leave the field unchanged.
func (o *Options) SetSleepTimeMS(ms int) error {
	if o == nil {
		return errNilOptions("SetSleepTimeMS")
	}
	d := time.Duration(ms) * time.Millisecond
	if ms < 0 || d > MaxSleepTime {
		return rangeError("sleep-time", ms, 0, int(MaxSleepTime/time.Millisecond))
	}
	o.sleepTime = d
	return nil
}

// CurrentTest returns the index of the test currently executing, or
// NoCurrentTest when none is.
func (o *Options) CurrentTest() int {
	if o == nil {
		return NoCurrentTest
	}
	return o.currentTest
}

// SetCurrentTest records the index of the test currently executing. The
// runner owns this field; valid values are NoCurrentTest and above.
func (o *Options) SetCurrentTest(n int) error {
	if o == nil {
		return errNilOptions("SetCurrentTest")
	}
	if n < NoCurrentTest {
		return rangeError("current test", n, NoCurrentTest, MaxTestNumber)
	}
	o.currentTest = n
	return nil
}

// --- response overrides ---

// ResponseBefore returns the before-prompt response override, NoResponse
// when none is set.
func (o *Options) ResponseBefore() byte {
	if o == nil {
		return NoResponse
	}
	return o.responseBefore
}

// SetResponseBefore sets the before-prompt response override. Accepted
// characters are c, s, a, q (case-insensitive, stored lowercase) and 0 to
// clear the override. Anything else leaves the field unchanged.
func (o *Options) SetResponseBefore(c byte) error {
	if o == nil {
		return errNilOptions("SetResponseBefore")
	}
	lc := lowerByte(c)
	switch lc {
	case NoResponse, ResponseContinue, ResponseSkip, ResponseAbort, ResponseQuit:
		o.responseBefore = lc
		return nil
	}
	return fmt.Errorf("invalid response-before character %q (want one of c, s, a, q)", c)
}

// ResponseAfter returns the after-prompt response override, NoResponse when
// none is set.
func (o *Options) ResponseAfter() byte {
	if o == nil {
		return NoResponse
	}
	return o.responseAfter
}

// SetResponseAfter sets the after-prompt response override. Accepted
// characters are p, f, a, q (case-insensitive, stored lowercase) and 0 to
// clear the override. Anything else leaves the field unchanged.
func (o *Options) SetResponseAfter(c byte) error {
	if o == nil {
		return errNilOptions("SetResponseAfter")
	}
	lc := lowerByte(c)
	switch lc {
	case NoResponse, ResponsePass, ResponseFail, ResponseAbort, ResponseQuit:
		o.responseAfter = lc
		return nil
	}
	return fmt.Errorf("invalid response-after character %q (want one of p, f, a, q)", c)
}

// --- session ---

// Session returns the prompt session for this run. A default session bound
// to the process standard streams is created on first use.
func (o *Options) Session() *Session {
	if o == nil {
		return NewSession()
	}
	if o.session == nil {
		o.session = NewSession()
	}
	return o.session
}

// SetSession installs a caller-owned prompt session. A nil session resets to
// the default standard-stream session.
func (o *Options) SetSession(s *Session) {
	if o != nil {
		o.session = s
	}
}

// --- validation helpers ---

func errNilOptions(op string) error {
	return fmt.Errorf("options: %s on nil Options", op)
}

func rangeError(field string, got, min, max int) error {
	return fmt.Errorf("options: %s %d out of range [%d, %d]", field, got, min, max)
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
