// Package runner drives a battery run: it pulls test indices from the
// registry, executes each test function against the run Options, disposes
// the returned Status, folds the verdict into the aggregates and decides
// when the loop stops. Execution is strictly sequential in load order; the
// only blocking points are the optional interactive prompts and the
// configured between-test sleep.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/batterykit/battery/logging"
	"github.com/batterykit/battery/metrics"
	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/reporting"
	"github.com/batterykit/battery/status"
)

// Stats tracks the aggregate counts of one run.
type Stats struct {
	Loaded   int
	Run      int
	Subtests int
	Errors   int
}

// Result captures the complete outcome of one battery run. The run passed
// iff Stats.Errors is zero.
type Result struct {
	RunID    string
	Stats    Stats
	Duration time.Duration

	// First-failure coordinates; FirstTest is registry.NoFailure when the
	// run passed.
	FirstTest    int
	FirstGroup   int
	FirstCase    int
	FirstSubtest int

	// Stopped reports an early exit: stop-on-error, a quit/abort
	// disposition, a protocol violation, or context cancellation.
	Stopped bool

	Statuses []*status.Status
}

// Passed reports whether every executed test passed.
func (r *Result) Passed() bool {
	return r != nil && r.Stats.Errors == 0
}

// Summary flattens the result for the reporting layer.
func (r *Result) Summary(batteryName string) reporting.Summary {
	if r == nil {
		return reporting.Summary{BatteryName: batteryName, FirstTest: registry.NoFailure}
	}
	return reporting.Summary{
		BatteryName:  batteryName,
		RunID:        r.RunID,
		Loaded:       r.Stats.Loaded,
		Run:          r.Stats.Run,
		Subtests:     r.Stats.Subtests,
		Errors:       r.Stats.Errors,
		FirstTest:    r.FirstTest,
		FirstGroup:   r.FirstGroup,
		FirstCase:    r.FirstCase,
		FirstSubtest: r.FirstSubtest,
		Duration:     r.Duration,
		Stopped:      r.Stopped,
	}
}

// TestRunner defines the interface for driving a battery run.
type TestRunner interface {
	Run(ctx context.Context) (*Result, error)
}

// runner struct implements TestRunner interface
type runner struct {
	registry    *registry.Registry
	log         log.Logger
	batteryName string
	runID       string
	fileLogger  *logging.FileLogger
	tracer      trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry    *registry.Registry
	Log         log.Logger
	BatteryName string              // Name reported in metrics and the summary
	RunID       string              // Optional; a fresh UUID is generated when empty
	FileLogger  *logging.FileLogger // Optional sink for storing test results
	Tracer      trace.Tracer        // Optional; defaults to the global provider
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.BatteryName == "" {
		cfg.BatteryName = "battery"
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("battery/runner")
	}

	cfg.Log.Debug("NewTestRunner()", "batteryName", cfg.BatteryName,
		"loaded", cfg.Registry.TestCount())

	return &runner{
		registry:    cfg.Registry,
		log:         cfg.Log,
		batteryName: cfg.BatteryName,
		runID:       cfg.RunID,
		fileLogger:  cfg.FileLogger,
		tracer:      cfg.Tracer,
	}, nil
}

// Run executes every loaded test in load order, subject to the Options
// filters, and returns the aggregate result. It fails outright only for
// setup-level problems (no tests loaded); test failures are data, reported
// through the Result.
func (r *runner) Run(ctx context.Context) (*Result, error) {
	reg := r.registry
	if err := reg.BeginRun(); err != nil {
		return nil, fmt.Errorf("run init failed: %w", err)
	}

	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	opts := reg.Options()

	if !opts.Silent() {
		r.log.Info("Starting battery run",
			"battery", r.batteryName,
			"run_id", runID,
			"loaded", reg.TestCount(),
			"summarize", opts.Summarize())
	}

	ctx, span := r.tracer.Start(ctx, "battery.run",
		trace.WithAttributes(
			attribute.String("battery.name", r.batteryName),
			attribute.String("battery.run_id", runID),
			attribute.Int("battery.loaded", reg.TestCount()),
		))
	defer span.End()

	result := &Result{
		RunID:     runID,
		FirstTest: registry.NoFailure,
	}
	result.Stats.Loaded = reg.TestCount()

	stopped := false
	for {
		idx := reg.NextTest()
		if idx == registry.NoMoreTests {
			break
		}
		if err := opts.SetCurrentTest(idx); err != nil {
			r.log.Error("Failed to set current test number", "index", idx, "err", err)
		}

		st := r.runATest(ctx, runID, idx, reg.TestAt(idx))
		result.Statuses = append(result.Statuses, st)

		if violation := r.checkSubtestProtocol(opts, st); violation {
			// A test that never entered a sub-test when the run requires
			// them is a protocol error: score it failed and stop the loop.
			st.SetDisposition(status.Failed)
			stopped = true
		}

		ok, stop := st.Dispose()
		reg.RecordResult(idx, st, ok)
		r.recordTestMetrics(runID, st, ok)
		r.consumeResult(runID, st)

		if !ok && opts.StopOnError() {
			r.log.Warn("Stopping on first error",
				"group", st.Group(), "case", st.Case())
			stopped = true
		}
		if stop {
			r.log.Info("Test requested stop",
				"disposition", st.Disposition().String(),
				"group", st.Group(), "case", st.Case())
			stopped = true
		}
		if stopped {
			break
		}

		if !r.sleepBetweenTests(ctx, opts) {
			stopped = true
			break
		}
	}

	if err := opts.SetCurrentTest(options.NoCurrentTest); err != nil {
		r.log.Error("Failed to clear current test number", "err", err)
	}
	reg.FinishRun()

	result.Stats.Run = reg.TotalRun()
	result.Stats.Subtests = reg.TotalSubtests()
	result.Stats.Errors = reg.TotalErrors()
	result.FirstTest, result.FirstGroup, result.FirstCase, result.FirstSubtest = reg.FirstFailure()
	result.Duration = reg.Duration()
	result.Stopped = stopped

	r.recordRunMetrics(runID, result)
	span.SetAttributes(
		attribute.Int("battery.errors", result.Stats.Errors),
		attribute.Bool("battery.passed", result.Passed()),
	)

	if r.fileLogger != nil {
		if err := r.fileLogger.Complete(runID); err != nil {
			r.log.Error("Failed to complete result sinks", "err", err)
		}
	}

	if !opts.Silent() {
		r.log.Info("Battery run complete",
			"run_id", runID,
			"result", result.Summary(r.batteryName).String())
	}
	return result, nil
}

// runATest executes a single test function and post-processes its Status.
// A nil function or a nil returned Status yields a synthetic failed Status
// instead of undefined behavior.
func (r *runner) runATest(ctx context.Context, runID string, idx int, fn registry.TestFunc) *status.Status {
	opts := r.registry.Options()

	_, span := r.tracer.Start(ctx, "battery.test",
		trace.WithAttributes(attribute.Int("battery.test_index", idx)))
	defer span.End()

	if fn == nil {
		r.log.Error("Test function is nil", "index", idx)
		return syntheticFailure()
	}

	st := fn(opts)
	if st == nil {
		r.log.Error("Test returned a nil status", "index", idx)
		return syntheticFailure()
	}
	st.Finish()

	span.SetAttributes(
		attribute.Int("battery.group", st.Group()),
		attribute.Int("battery.case", st.Case()),
		attribute.Int("battery.subtests", st.SubtestCount()),
		attribute.Bool("battery.passed", st.Passed()),
	)

	if !opts.Summarize() && st.Disposition() != status.DidNotTest && !opts.Silent() {
		fmt.Fprintln(opts.Session().Out, reporting.ResultLine(st))
	}

	r.casePause(opts)
	return st
}

// checkSubtestProtocol reports whether the completed test violated the
// require-sub-tests contract. Skipped and summarized tests are exempt; so
// are tests that already carry a stopping disposition.
func (r *runner) checkSubtestProtocol(opts *options.Options, st *status.Status) bool {
	if !opts.NeedSubtests() || opts.Summarize() {
		return false
	}
	if st.Disposition() != status.Continue {
		return false
	}
	if st.SubtestCount() > 0 {
		return false
	}
	r.log.Error("Protocol violation: test reported no sub-tests",
		"group", st.Group(), "case", st.Case())
	metrics.RecordError("subtest_protocol_violation")
	return true
}

// casePause waits for user acknowledgment between test cases. Any response
// override (batch mode arms one) skips the wait so unattended runs never
// block.
func (r *runner) casePause(opts *options.Options) {
	if !opts.CasePause() || !opts.Interactive() || opts.Summarize() {
		return
	}
	sess := opts.Session()
	if opts.ResponseBefore() != options.NoResponse || sess.AutoBefore != options.NoResponse {
		return
	}
	fmt.Fprint(sess.Out, "press Enter for the next test case... ")
	if _, err := sess.ReadLine(); err != nil {
		r.log.Debug("Case pause input exhausted", "err", err)
	}
}

// sleepBetweenTests paces the loop. Returns false when the context was
// cancelled during the wait.
func (r *runner) sleepBetweenTests(ctx context.Context, opts *options.Options) bool {
	d := opts.SleepTime()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.log.Warn("Run cancelled during sleep", "err", ctx.Err())
		return false
	case <-timer.C:
		return true
	}
}

func (r *runner) recordTestMetrics(runID string, st *status.Status, ok bool) {
	result := metrics.ResultFail
	switch {
	case st.Disposition() == status.DidNotTest:
		result = metrics.ResultSkip
	case ok:
		result = metrics.ResultPass
	}
	metrics.RecordTest(r.batteryName, runID, st.Group(), result)
	metrics.RecordSubtests(r.batteryName, runID, st.SubtestCount())
}

func (r *runner) recordRunMetrics(runID string, result *Result) {
	overall := metrics.ResultPass
	if !result.Passed() {
		overall = metrics.ResultFail
	}
	metrics.RecordRun(r.batteryName, runID, overall,
		result.Stats.Run-result.Stats.Errors, result.Stats.Errors, result.Duration)
}

func (r *runner) consumeResult(runID string, st *status.Status) {
	if r.fileLogger == nil {
		return
	}
	if err := r.fileLogger.Consume(st, runID); err != nil {
		r.log.Error("Failed to persist test result", "err", err)
		metrics.RecordErrorDetails("result_sink", err)
	}
}

// syntheticFailure builds the Status the runner reports when a test cannot
// be invoked at all. The Failed disposition keeps the loop going so one bad
// entry does not mask the rest of the battery.
func syntheticFailure() *status.Status {
	st := status.New()
	st.SetDisposition(status.Failed)
	st.Fail()
	st.Finish()
	return st
}
