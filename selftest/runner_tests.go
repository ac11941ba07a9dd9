package selftest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/runner"
	"github.com/batterykit/battery/status"
)

func runnerTests() []registry.TestFunc {
	return []registry.TestFunc{
		testRegistryLoadGrowth,
		testRegistryLoadRejects,
		testRegistryRunCursor,
		testRunnerAllPass,
		testRunnerFailureAggregation,
		testRunnerStopOnError,
		testRunnerQuitAndAbort,
		testRunnerBadTestEntries,
		testRunnerSubtestProtocol,
		testRunnerSummarizeListing,
	}
}

// innerCase builds a throwaway test function for an inner battery: one
// sub-test, passing or failing as requested.
func innerCase(group, caseNum int, fail bool) registry.TestFunc {
	return func(o *options.Options) *status.Status {
		st := status.New()
		proceed, err := st.Initialize(o, group, caseNum, "inner", fmt.Sprintf("case-%d", caseNum))
		if err != nil {
			st.Abort()
			return st
		}
		if !proceed {
			return st
		}
		if st.NextSubtest("only step") {
			st.Pass(!fail)
		}
		return st
	}
}

// runInner executes a complete inner battery against o and returns its
// result. The inner run logs to nowhere so the outer battery's output stays
// clean.
func runInner(o *options.Options, fns ...registry.TestFunc) (*runner.Result, error) {
	reg, err := registry.NewRegistry(registry.Config{
		Log:     log.NewLogger(log.DiscardHandler()),
		Options: o,
	})
	if err != nil {
		return nil, err
	}
	for _, fn := range fns {
		if err := reg.Load(fn); err != nil {
			return nil, err
		}
	}
	tr, err := runner.NewTestRunner(runner.Config{
		Registry:    reg,
		Log:         log.NewLogger(log.DiscardHandler()),
		BatteryName: "selftest-inner",
	})
	if err != nil {
		return nil, err
	}
	return tr.Run(context.Background())
}

func testRegistryLoadGrowth(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 1, GroupRunnerName, "load growth")
	if !ok {
		return st
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:     log.NewLogger(log.DiscardHandler()),
		Options: quietOptions(),
	})
	if err != nil {
		st.Fail()
		return st
	}

	total := registry.LoadChunk + registry.LoadChunk/2
	if st.NextSubtest("loading past the initial capacity") {
		for i := 0; i < total; i++ {
			if err := reg.Load(innerCase(1, i+1, false)); err != nil {
				st.Fail()
				return st
			}
		}
		st.Pass(reg.TestCount() == total)
	}
	if st.NextSubtest("growth preserves order") {
		// Identity survives growth: the function at index i must still be
		// the one loaded i-th. Run a probe through it and check the case.
		probeOpts := quietOptions()
		probed := reg.TestAt(registry.LoadChunk + 3)(probeOpts)
		st.Pass(probed != nil && probed.Case() == registry.LoadChunk+4)
	}
	return st
}

func testRegistryLoadRejects(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 2, GroupRunnerName, "load rejects")
	if !ok {
		return st
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:     log.NewLogger(log.DiscardHandler()),
		Options: quietOptions(),
	})
	if err != nil {
		st.Fail()
		return st
	}
	_ = reg.Load(innerCase(1, 1, false))

	if st.NextSubtest("nil function rejected") {
		st.Pass(reg.Load(nil) != nil)
		st.Pass(reg.TestCount() == 1)
	}
	if st.NextSubtest("loading after the run starts rejected") {
		st.Pass(reg.BeginRun() == nil)
		st.Pass(reg.Load(innerCase(1, 2, false)) != nil)
		st.Pass(reg.TestCount() == 1)
		reg.FinishRun()
	}
	if st.NextSubtest("out-of-range lookup is nil") {
		st.Pass(reg.TestAt(-1) == nil)
		st.Pass(reg.TestAt(1) == nil)
	}
	return st
}

func testRegistryRunCursor(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 3, GroupRunnerName, "run cursor")
	if !ok {
		return st
	}

	if st.NextSubtest("empty registry cannot begin") {
		empty, _ := registry.NewRegistry(registry.Config{
			Log:     log.NewLogger(log.DiscardHandler()),
			Options: quietOptions(),
		})
		st.Pass(empty.BeginRun() != nil)
	}

	reg, _ := registry.NewRegistry(registry.Config{
		Log:     log.NewLogger(log.DiscardHandler()),
		Options: quietOptions(),
	})
	for i := 0; i < 3; i++ {
		_ = reg.Load(innerCase(1, i+1, false))
	}
	if st.NextSubtest("cursor walks each test once") {
		st.Pass(reg.BeginRun() == nil)
		st.Pass(reg.NextTest() == 0)
		st.Pass(reg.NextTest() == 1)
		st.Pass(reg.NextTest() == 2)
		st.Pass(reg.NextTest() == registry.NoMoreTests)
		st.Pass(reg.NextTest() == registry.NoMoreTests)
	}
	if st.NextSubtest("begin resets aggregates") {
		probe := status.New()
		_, _ = probe.Initialize(quietOptions(), 4, 9, "g", "c")
		probe.NextSubtest("x")
		probe.Fail()
		reg.RecordResult(1, probe, false)
		st.Pass(reg.TotalErrors() == 1)
		idx, group, caseNum, sub := reg.FirstFailure()
		st.Pass(idx == 1 && group == 4 && caseNum == 9 && sub == 1)

		st.Pass(reg.BeginRun() == nil)
		st.Pass(reg.TotalRun() == 0 && reg.TotalErrors() == 0)
		idx, _, _, _ = reg.FirstFailure()
		st.Pass(idx == registry.NoFailure)
		reg.FinishRun()
	}
	return st
}

func testRunnerAllPass(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 4, GroupRunnerName, "all pass")
	if !ok {
		return st
	}

	result, err := runInner(quietOptions(),
		innerCase(1, 1, false),
		innerCase(1, 2, false),
		innerCase(2, 1, false),
	)
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("clean run passes") {
		st.Pass(result.Passed())
		st.Pass(!result.Stopped)
	}
	if st.NextSubtest("aggregates add up") {
		st.Pass(result.Stats.Loaded == 3)
		st.Pass(result.Stats.Run == 3)
		st.Pass(result.Stats.Subtests == 3)
		st.Pass(result.Stats.Errors == 0)
		st.Pass(result.FirstTest == registry.NoFailure)
	}
	if st.NextSubtest("run is identified") {
		st.Pass(result.RunID != "")
		st.Pass(len(result.Statuses) == 3)
	}
	return st
}

func testRunnerFailureAggregation(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 5, GroupRunnerName, "failure aggregation")
	if !ok {
		return st
	}

	result, err := runInner(quietOptions(),
		innerCase(1, 1, false),
		innerCase(1, 2, true),
		innerCase(1, 3, true),
		innerCase(1, 4, false),
	)
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("failures fail the run, later passes do not help") {
		st.Pass(!result.Passed())
		st.Pass(result.Stats.Errors == 2)
		st.Pass(result.Stats.Run == 4)
		st.Pass(!result.Stopped)
	}
	if st.NextSubtest("first failure coordinates are sticky") {
		st.Pass(result.FirstTest == 1)
		st.Pass(result.FirstGroup == 1)
		st.Pass(result.FirstCase == 2)
		st.Pass(result.FirstSubtest == 1)
	}
	return st
}

func testRunnerStopOnError(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 6, GroupRunnerName, "stop on error")
	if !ok {
		return st
	}

	o := quietOptions()
	o.SetStopOnError(true)
	result, err := runInner(o,
		innerCase(1, 1, false),
		innerCase(1, 2, true),
		innerCase(1, 3, false),
	)
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("loop halts at the first failure") {
		st.Pass(result.Stopped)
		st.Pass(result.Stats.Run == 2)
		st.Pass(result.Stats.Errors == 1)
	}
	if st.NextSubtest("the untested remainder stays untested") {
		st.Pass(result.Stats.Loaded == 3)
		st.Pass(len(result.Statuses) == 2)
	}
	return st
}

func testRunnerQuitAndAbort(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 7, GroupRunnerName, "quit and abort")
	if !ok {
		return st
	}

	quitter := func(o *options.Options) *status.Status {
		inner := status.New()
		if proceed, _ := inner.Initialize(o, 1, 2, "inner", "quitter"); proceed {
			inner.Quit()
		}
		return inner
	}
	aborter := func(o *options.Options) *status.Status {
		inner := status.New()
		if proceed, _ := inner.Initialize(o, 1, 2, "inner", "aborter"); proceed {
			inner.Abort()
		}
		return inner
	}

	if st.NextSubtest("quit stops the run and still passes") {
		result, err := runInner(quietOptions(),
			innerCase(1, 1, false), quitter, innerCase(1, 3, false))
		st.Pass(err == nil)
		st.Pass(result.Stopped)
		st.Pass(result.Passed())
		st.Pass(result.Stats.Run == 2)
	}
	if st.NextSubtest("abort stops the run and fails it") {
		result, err := runInner(quietOptions(),
			innerCase(1, 1, false), aborter, innerCase(1, 3, false))
		st.Pass(err == nil)
		st.Pass(result.Stopped)
		st.Pass(!result.Passed())
		st.Pass(result.Stats.Errors == 1)
	}
	return st
}

func testRunnerBadTestEntries(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 8, GroupRunnerName, "bad test entries")
	if !ok {
		return st
	}

	nilStatus := func(o *options.Options) *status.Status { return nil }

	result, err := runInner(quietOptions(),
		innerCase(1, 1, false), nilStatus, innerCase(1, 3, false))
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("a nil status scores as a failure") {
		st.Pass(!result.Passed())
		st.Pass(result.Stats.Errors == 1)
	}
	if st.NextSubtest("one bad entry does not stop the battery") {
		st.Pass(!result.Stopped)
		st.Pass(result.Stats.Run == 3)
	}
	return st
}

func testRunnerSubtestProtocol(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 9, GroupRunnerName, "sub-test protocol")
	if !ok {
		return st
	}

	lazy := func(o *options.Options) *status.Status {
		inner := status.New()
		_, _ = inner.Initialize(o, 1, 2, "inner", "lazy")
		return inner // never enters a sub-test
	}

	o := quietOptions()
	o.SetNeedSubtests(true)
	result, err := runInner(o,
		innerCase(1, 1, false), lazy, innerCase(1, 3, false))
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("a sub-test-free case is a violation") {
		st.Pass(!result.Passed())
		st.Pass(result.Stats.Errors == 1)
		st.Pass(result.FirstCase == 2)
	}
	if st.NextSubtest("the violation stops the run") {
		st.Pass(result.Stopped)
		st.Pass(result.Stats.Run == 2)
	}
	if st.NextSubtest("without the requirement the same battery passes") {
		relaxed, err := runInner(quietOptions(),
			innerCase(1, 1, false), lazy, innerCase(1, 3, false))
		st.Pass(err == nil)
		st.Pass(relaxed.Passed())
		st.Pass(!relaxed.Stopped)
	}
	return st
}

func testRunnerSummarizeListing(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupRunner, 10, GroupRunnerName, "summarize listing")
	if !ok {
		return st
	}

	executed := 0
	counting := func(o *options.Options) *status.Status {
		inner := status.New()
		proceed, _ := inner.Initialize(o, 1, 1, "inner", "counting")
		if !proceed {
			return inner
		}
		if inner.NextSubtest("body") {
			executed++
			inner.Pass(true)
		}
		return inner
	}

	var listing bytes.Buffer
	o := options.New()
	o.SetShowProgress(false)
	o.SetSilent(true)
	o.SetSession(&options.Session{Out: &listing})
	o.SetSummarize(true)

	result, err := runInner(o, counting, innerCase(1, 2, false))
	if err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("bodies never execute") {
		st.Pass(executed == 0)
		st.Pass(result.Passed())
	}
	if st.NextSubtest("every case and sub-test is listed") {
		out := listing.String()
		st.Pass(strings.Count(out, "case") >= 2)
		st.Pass(strings.Count(out, "sub-test") >= 2)
		st.Pass(strings.Contains(out, `"counting"`))
	}
	return st
}
