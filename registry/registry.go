// Package registry owns the list of loaded test-case functions, the run
// Options and the aggregate counters for a battery run. Tests are loaded
// once, then consumed by the runner; the registry itself never executes
// anything.
package registry

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/status"
)

// TestFunc is a single test case. It receives the run Options, builds and
// initializes its own Status, and returns it whatever happens; the runner
// treats a nil return as an aborted test.
type TestFunc func(opts *options.Options) *status.Status

const (
	// LoadChunk is the initial capacity reserved for loaded tests. Growth
	// past it is amortized by the runtime; loaded entries are never
	// reordered or dropped by growth.
	LoadChunk = 100

	// NoMoreTests is the NextTest sentinel once the loaded tests are
	// exhausted.
	NoMoreTests = -1

	// NoFailure marks a first-failed-test index before any test fails.
	NoFailure = -1
)

// Registry manages the loaded tests and the run aggregates.
type Registry struct {
	config Config
	opts   *options.Options
	tests  []TestFunc

	running bool
	current int

	totalRun      int
	totalSubtests int
	totalErrors   int

	// First-failure coordinates; sticky once set.
	firstFailedTest    int
	firstFailedGroup   int
	firstFailedCase    int
	firstFailedSubtest int

	startTime time.Time
	endTime   time.Time
}

// Config contains registry configuration
type Config struct {
	Log     log.Logger
	Options *options.Options

	// AdditionalHelp is appended to the application usage text, letting a
	// battery binary document its own groups and cases.
	AdditionalHelp string
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Options == nil {
		cfg.Options = options.New()
		cfg.Log.Warn("No options provided, using defaults")
	}

	r := &Registry{
		config:          cfg,
		opts:            cfg.Options,
		tests:           make([]TestFunc, 0, LoadChunk),
		current:         NoMoreTests,
		firstFailedTest: NoFailure,
	}
	return r, nil
}

// Load appends a test function. It fails on a nil function and once the run
// has started; a failed Load never disturbs the already-loaded tests.
func (r *Registry) Load(fn TestFunc) error {
	if r == nil {
		return fmt.Errorf("registry: Load on nil Registry")
	}
	if fn == nil {
		return fmt.Errorf("registry: cannot load a nil test function")
	}
	if r.running {
		return fmt.Errorf("registry: cannot load after the run has started")
	}
	r.tests = append(r.tests, fn)
	r.config.Log.Debug("Loaded test", "count", len(r.tests))
	return nil
}

// TestCount returns how many tests have been loaded.
func (r *Registry) TestCount() int {
	if r == nil {
		return 0
	}
	return len(r.tests)
}

// TestAt returns the test function at index i, or nil when out of range.
func (r *Registry) TestAt(i int) TestFunc {
	if r == nil || i < 0 || i >= len(r.tests) {
		return nil
	}
	return r.tests[i]
}

// Options returns the registry's run configuration.
func (r *Registry) Options() *options.Options {
	if r == nil {
		return nil
	}
	return r.opts
}

// AdditionalHelp returns the battery-specific usage text.
func (r *Registry) AdditionalHelp() string {
	if r == nil {
		return ""
	}
	return r.config.AdditionalHelp
}

// BeginRun prepares the aggregates for a fresh run. It fails when no tests
// are loaded. Counters and first-failure coordinates reset so a registry
// can be run more than once.
func (r *Registry) BeginRun() error {
	if r == nil {
		return fmt.Errorf("registry: BeginRun on nil Registry")
	}
	if len(r.tests) == 0 {
		return fmt.Errorf("registry: no tests loaded")
	}
	r.running = true
	r.current = NoMoreTests
	r.totalRun = 0
	r.totalSubtests = 0
	r.totalErrors = 0
	r.firstFailedTest = NoFailure
	r.firstFailedGroup = 0
	r.firstFailedCase = 0
	r.firstFailedSubtest = 0
	r.startTime = time.Now()
	r.endTime = time.Time{}
	return nil
}

// NextTest pre-increments the run cursor and returns the next test index,
// or NoMoreTests once the loaded tests are exhausted.
func (r *Registry) NextTest() int {
	if r == nil {
		return NoMoreTests
	}
	r.current++
	if r.current >= len(r.tests) {
		return NoMoreTests
	}
	return r.current
}

// RecordResult folds one disposed Status into the aggregates. The ok flag
// is the verdict Dispose materialized. First-failure coordinates are
// recorded for the first failing test only and never overwritten.
func (r *Registry) RecordResult(testIndex int, st *status.Status, ok bool) {
	if r == nil {
		return
	}
	r.totalRun++
	r.totalSubtests += st.SubtestCount()
	if ok {
		return
	}
	r.totalErrors++
	if r.firstFailedTest == NoFailure {
		r.firstFailedTest = testIndex
		r.firstFailedGroup = st.Group()
		r.firstFailedCase = st.Case()
		r.firstFailedSubtest = st.FirstFailedSubtest()
	}
}

// FinishRun stamps the end of the run.
func (r *Registry) FinishRun() {
	if r == nil {
		return
	}
	r.endTime = time.Now()
	r.running = false
}

// TotalRun returns how many tests executed in the last run.
func (r *Registry) TotalRun() int {
	if r == nil {
		return 0
	}
	return r.totalRun
}

// TotalSubtests returns how many sub-tests were entered in the last run.
func (r *Registry) TotalSubtests() int {
	if r == nil {
		return 0
	}
	return r.totalSubtests
}

// TotalErrors returns how many tests failed in the last run. The run as a
// whole passed iff this is zero.
func (r *Registry) TotalErrors() int {
	if r == nil {
		return 0
	}
	return r.totalErrors
}

// FirstFailure returns the coordinates of the first failing test: its load
// index (NoFailure when everything passed), group, case, and first failed
// sub-test.
func (r *Registry) FirstFailure() (testIndex, group, caseNum, subtest int) {
	if r == nil {
		return NoFailure, 0, 0, 0
	}
	return r.firstFailedTest, r.firstFailedGroup, r.firstFailedCase, r.firstFailedSubtest
}

// Duration returns the wall time of the last run.
func (r *Registry) Duration() time.Duration {
	if r == nil || r.startTime.IsZero() {
		return 0
	}
	if r.endTime.IsZero() {
		return time.Since(r.startTime)
	}
	return r.endTime.Sub(r.startTime)
}

// StartTime returns when the last run began.
func (r *Registry) StartTime() time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.startTime
}
