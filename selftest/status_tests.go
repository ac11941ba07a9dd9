package selftest

import (
	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/status"
)

func statusTests() []registry.TestFunc {
	return []registry.TestFunc{
		testStatusBareState,
		testStatusInitialize,
		testStatusInitializeRejects,
		testStatusGroupFilter,
		testStatusCaseFilter,
		testStatusSubtestFilter,
		testStatusCumulativePassFail,
		testStatusStickyFirstFailure,
		testStatusDisposeTable,
		testStatusIsOkay,
		testStatusPromptBefore,
		testStatusPromptAfter,
		testStatusPromptNonInteractive,
		testStatusResetCounts,
	}
}

func testStatusBareState(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 1, GroupStatusName, "bare state")
	if !ok {
		return st
	}

	bare := status.New()
	if st.NextSubtest("aborted until initialized") {
		st.Pass(bare.Disposition() == status.Aborted)
		st.Pass(!bare.IsOkay())
		st.Pass(bare.Group() == 0)
		st.Pass(bare.SubtestCount() == 0)
	}
	if st.NextSubtest("dispose of bare status stops and fails") {
		pass, stop := bare.Dispose()
		st.Pass(!pass)
		st.Pass(stop)
	}
	return st
}

func testStatusInitialize(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 2, GroupStatusName, "initialize")
	if !ok {
		return st
	}

	o := quietOptions()
	probe := status.New()
	if st.NextSubtest("successful initialize continues") {
		proceed, err := probe.Initialize(o, 7, 3, "g", "c")
		st.Pass(err == nil)
		st.Pass(proceed)
		st.Pass(probe.Disposition() == status.Continue)
		st.Pass(probe.Group() == 7)
		st.Pass(probe.Case() == 3)
		st.Pass(!probe.StartTime().IsZero())
	}
	if st.NextSubtest("idempotent for identical inputs") {
		first, err1 := probe.Initialize(o, 7, 3, "g", "c")
		second, err2 := probe.Initialize(o, 7, 3, "g", "c")
		st.Pass(err1 == nil && err2 == nil)
		st.Pass(first == second)
		st.Pass(probe.Disposition() == status.Continue)
	}
	return st
}

func testStatusInitializeRejects(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 3, GroupStatusName, "initialize rejects")
	if !ok {
		return st
	}

	o := quietOptions()
	if st.NextSubtest("nil options") {
		probe := status.New()
		_, err := probe.Initialize(nil, 1, 1, "g", "c")
		st.Pass(err != nil)
		st.Pass(probe.Disposition() == status.Aborted)
	}
	if st.NextSubtest("empty names") {
		probe := status.New()
		_, err := probe.Initialize(o, 1, 1, "", "c")
		st.Pass(err != nil)
		_, err = probe.Initialize(o, 1, 1, "g", "")
		st.Pass(err != nil)
	}
	if st.NextSubtest("non-positive numbers") {
		probe := status.New()
		_, err := probe.Initialize(o, 0, 1, "g", "c")
		st.Pass(err != nil)
		_, err = probe.Initialize(o, 1, -1, "g", "c")
		st.Pass(err != nil)
		st.Pass(probe.Disposition() == status.Aborted)
	}
	return st
}

func testStatusGroupFilter(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 4, GroupStatusName, "group filter")
	if !ok {
		return st
	}

	o := quietOptions()
	_ = o.SetGroup(5)
	if st.NextSubtest("mismatched group skips as pass") {
		probe := status.New()
		proceed, err := probe.Initialize(o, 3, 1, "g", "c")
		st.Pass(err == nil)
		st.Pass(!proceed)
		st.Pass(probe.Disposition() == status.DidNotTest)
		st.Pass(probe.Result())
	}
	if st.NextSubtest("matching group proceeds") {
		probe := status.New()
		proceed, err := probe.Initialize(o, 5, 1, "g", "c")
		st.Pass(err == nil && proceed)
	}
	if st.NextSubtest("name filter applies when number unset") {
		named := quietOptions()
		_ = named.SetGroupName("wanted")
		probe := status.New()
		proceed, _ := probe.Initialize(named, 9, 1, "other", "c")
		st.Pass(!proceed)
		proceed, _ = probe.Initialize(named, 9, 1, "wanted", "c")
		st.Pass(proceed)
	}
	if st.NextSubtest("number outranks name") {
		both := quietOptions()
		_ = both.SetGroup(4)
		_ = both.SetGroupName("other")
		probe := status.New()
		proceed, _ := probe.Initialize(both, 4, 1, "anything", "c")
		st.Pass(proceed)
	}
	return st
}

func testStatusCaseFilter(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 5, GroupStatusName, "case filter")
	if !ok {
		return st
	}

	o := quietOptions()
	_ = o.SetCase(2)
	if st.NextSubtest("mismatched case skips as pass") {
		probe := status.New()
		proceed, _ := probe.Initialize(o, 1, 9, "g", "c")
		st.Pass(!proceed)
		st.Pass(probe.Disposition() == status.DidNotTest)
	}
	if st.NextSubtest("matching case proceeds") {
		probe := status.New()
		proceed, _ := probe.Initialize(o, 1, 2, "g", "c")
		st.Pass(proceed)
	}
	if st.NextSubtest("group and case filters are independent") {
		o2 := quietOptions()
		_ = o2.SetGroup(1)
		_ = o2.SetCaseName("special")
		probe := status.New()
		proceed, _ := probe.Initialize(o2, 1, 7, "g", "ordinary")
		st.Pass(!proceed)
		proceed, _ = probe.Initialize(o2, 1, 7, "g", "special")
		st.Pass(proceed)
	}
	return st
}

func testStatusSubtestFilter(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 6, GroupStatusName, "sub-test filter")
	if !ok {
		return st
	}

	o := quietOptions()
	_ = o.SetSubtest(2)
	probe := status.New()
	if _, err := probe.Initialize(o, 1, 1, "g", "c"); err != nil {
		st.Fail()
		return st
	}

	if st.NextSubtest("only the matching ordinal executes") {
		st.Pass(!probe.NextSubtest("one"))
		st.Pass(probe.NextSubtest("two"))
		st.Pass(!probe.NextSubtest("three"))
	}
	if st.NextSubtest("counter advances regardless") {
		st.Pass(probe.SubtestCount() == 3)
	}
	if st.NextSubtest("tag filter applies when ordinal unset") {
		named := quietOptions()
		_ = named.SetSubtestName("pick-me")
		p2 := status.New()
		_, _ = p2.Initialize(named, 1, 1, "g", "c")
		st.Pass(!p2.NextSubtest("skip-me"))
		st.Pass(p2.NextSubtest("pick-me"))
	}
	if st.NextSubtest("fuzz tags are deterministic") {
		a := registry.NewFuzz(99)
		b := registry.NewFuzz(99)
		st.Pass(a.Tag(8) == b.Tag(8))
		st.Pass(a.Tag(8) == b.Tag(8))
		st.Pass(len(a.Tag(5)) == 5)
	}
	return st
}

func testStatusCumulativePassFail(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 7, GroupStatusName, "cumulative pass-fail")
	if !ok {
		return st
	}

	o := quietOptions()
	probe := status.New()
	_, _ = probe.Initialize(o, 1, 1, "g", "c")

	if st.NextSubtest("later pass does not erase failure") {
		probe.NextSubtest("a")
		probe.Pass(true)
		probe.NextSubtest("b")
		probe.Pass(false)
		probe.NextSubtest("c")
		probe.Pass(true)
		st.Pass(!probe.Passed())
		st.Pass(probe.ErrorCount() == 1)
		st.Pass(probe.Result()) // last flag was true, verdict still failed
	}
	if st.NextSubtest("fail is pass(false)") {
		probe.NextSubtest("d")
		probe.Fail()
		st.Pass(probe.ErrorCount() == 2)
	}
	return st
}

func testStatusStickyFirstFailure(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 8, GroupStatusName, "sticky first failure")
	if !ok {
		return st
	}

	o := quietOptions()
	probe := status.New()
	_, _ = probe.Initialize(o, 1, 1, "g", "c")

	if st.NextSubtest("records the first failing sub-test") {
		probe.NextSubtest("one")
		probe.Pass(true)
		probe.NextSubtest("two")
		probe.Fail()
		st.Pass(probe.FirstFailedSubtest() == 2)
	}
	if st.NextSubtest("later failures never overwrite it") {
		probe.NextSubtest("three")
		probe.Fail()
		probe.NextSubtest("four")
		probe.Fail()
		st.Pass(probe.FirstFailedSubtest() == 2)
		st.Pass(probe.ErrorCount() == 3)
	}
	return st
}

func testStatusDisposeTable(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 9, GroupStatusName, "dispose table")
	if !ok {
		return st
	}

	o := quietOptions()
	fresh := func(d status.Disposition) *status.Status {
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		probe.SetDisposition(d)
		return probe
	}

	if st.NextSubtest("continue keeps cumulative verdict") {
		probe := fresh(status.Continue)
		pass, stop := probe.Dispose()
		st.Pass(pass && !stop)
		probe2 := fresh(status.Continue)
		probe2.NextSubtest("x")
		probe2.Fail()
		pass, stop = probe2.Dispose()
		st.Pass(!pass && !stop)
	}
	if st.NextSubtest("did-not-test forces pass") {
		pass, stop := fresh(status.DidNotTest).Dispose()
		st.Pass(pass && !stop)
	}
	if st.NextSubtest("failed forces fail, no stop") {
		pass, stop := fresh(status.Failed).Dispose()
		st.Pass(!pass && !stop)
	}
	if st.NextSubtest("quitted passes and stops") {
		pass, stop := fresh(status.Quitted).Dispose()
		st.Pass(pass && stop)
	}
	if st.NextSubtest("aborted fails and stops") {
		pass, stop := fresh(status.Aborted).Dispose()
		st.Pass(!pass && stop)
	}
	return st
}

func testStatusIsOkay(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 10, GroupStatusName, "is okay")
	if !ok {
		return st
	}

	o := quietOptions()
	probe := status.New()
	_, _ = probe.Initialize(o, 1, 1, "g", "c")

	if st.NextSubtest("clean continue is okay") {
		st.Pass(probe.IsOkay())
	}
	if st.NextSubtest("quitted counts as okay") {
		probe.Quit()
		st.Pass(probe.IsOkay())
	}
	if st.NextSubtest("failures are not okay") {
		probe.SetDisposition(status.Continue)
		probe.NextSubtest("x")
		probe.Fail()
		st.Pass(!probe.IsOkay())
	}
	if st.NextSubtest("aborted is not okay") {
		clean := status.New()
		_, _ = clean.Initialize(o, 1, 1, "g", "c")
		clean.Abort()
		st.Pass(!clean.IsOkay())
	}
	return st
}

func testStatusPromptBefore(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 11, GroupStatusName, "prompt before")
	if !ok {
		return st
	}

	armed := func(auto byte) *status.Status {
		o := options.New()
		o.SetShowProgress(false)
		o.SetInteractive(true)
		o.SetSession(&options.Session{In: nil, Out: discardSession("").Out, AutoBefore: auto})
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		return probe
	}

	if st.NextSubtest("continue proceeds") {
		probe := armed(options.ResponseContinue)
		st.Pass(probe.Prompt("go?"))
		st.Pass(probe.Disposition() == status.Continue)
	}
	if st.NextSubtest("skip declines as pass") {
		probe := armed(options.ResponseSkip)
		st.Pass(!probe.Prompt("go?"))
		st.Pass(probe.Disposition() == status.DidNotTest)
		st.Pass(probe.Result())
	}
	if st.NextSubtest("quit declines as pass and stops") {
		probe := armed(options.ResponseQuit)
		st.Pass(!probe.Prompt("go?"))
		st.Pass(probe.Disposition() == status.Quitted)
	}
	if st.NextSubtest("abort declines as failure") {
		probe := armed(options.ResponseAbort)
		st.Pass(!probe.Prompt("go?"))
		st.Pass(probe.Disposition() == status.Aborted)
		st.Pass(!probe.Result())
	}
	if st.NextSubtest("invalid input retries until valid") {
		o := options.New()
		o.SetShowProgress(false)
		o.SetInteractive(true)
		o.SetSession(discardSession("x\nh\nc\n"))
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		st.Pass(probe.Prompt("go?"))
	}
	return st
}

func testStatusPromptAfter(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 12, GroupStatusName, "prompt after")
	if !ok {
		return st
	}

	armed := func(auto byte) *status.Status {
		o := options.New()
		o.SetShowProgress(false)
		o.SetInteractive(true)
		o.SetSession(&options.Session{In: nil, Out: discardSession("").Out, AutoAfter: auto})
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		probe.NextSubtest("manual step")
		return probe
	}

	if st.NextSubtest("pass records a pass") {
		probe := armed(options.ResponsePass)
		st.Pass(probe.Response("did it work?"))
		st.Pass(probe.Passed())
	}
	if st.NextSubtest("fail records a failed sub-test") {
		probe := armed(options.ResponseFail)
		st.Pass(!probe.Response("did it work?"))
		st.Pass(probe.ErrorCount() == 1)
		st.Pass(probe.FirstFailedSubtest() == 1)
	}
	if st.NextSubtest("quit passes and stops") {
		probe := armed(options.ResponseQuit)
		st.Pass(probe.Response("did it work?"))
		st.Pass(probe.Disposition() == status.Quitted)
	}
	if st.NextSubtest("abort fails and stops") {
		probe := armed(options.ResponseAbort)
		st.Pass(!probe.Response("did it work?"))
		st.Pass(probe.Disposition() == status.Aborted)
		st.Pass(probe.ErrorCount() == 1)
	}
	if st.NextSubtest("options override outranks session") {
		o := options.New()
		o.SetShowProgress(false)
		o.SetInteractive(true)
		_ = o.SetResponseAfter('p')
		o.SetSession(&options.Session{In: nil, Out: discardSession("").Out, AutoAfter: options.ResponseFail})
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		probe.NextSubtest("step")
		st.Pass(probe.Response("?"))
		st.Pass(probe.Passed())
	}
	return st
}

func testStatusPromptNonInteractive(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 13, GroupStatusName, "prompt non-interactive")
	if !ok {
		return st
	}

	o := quietOptions() // non-interactive
	if st.NextSubtest("before-prompt skips with no I/O") {
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		st.Pass(!probe.Prompt("go?"))
		st.Pass(probe.Disposition() == status.DidNotTest)
		st.Pass(probe.Result())
	}
	if st.NextSubtest("after-prompt auto-passes") {
		probe := status.New()
		_, _ = probe.Initialize(o, 1, 1, "g", "c")
		st.Pass(probe.Response("ok?"))
		st.Pass(probe.Disposition() == status.DidNotTest)
		st.Pass(probe.ErrorCount() == 0)
	}
	return st
}

func testStatusResetCounts(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupStatus, 14, GroupStatusName, "reset counts")
	if !ok {
		return st
	}

	o := quietOptions()
	probe := status.New()
	_, _ = probe.Initialize(o, 1, 1, "g", "c")
	probe.NextSubtest("a")
	probe.Fail()
	probe.NextSubtest("b")
	probe.Fail()

	if st.NextSubtest("reset clears the books") {
		probe.ResetCountsForTest()
		st.Pass(probe.Passed())
		st.Pass(probe.ErrorCount() == 0)
		st.Pass(probe.FirstFailedSubtest() == 0)
	}
	if st.NextSubtest("counting works again after reset") {
		probe.NextSubtest("c")
		probe.Fail()
		st.Pass(probe.ErrorCount() == 1)
		st.Pass(probe.FirstFailedSubtest() == 3)
	}
	return st
}
