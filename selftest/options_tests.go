package selftest

import (
	"time"

	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/status"
)

func optionsTests() []registry.TestFunc {
	return []registry.TestFunc{
		testOptionsDefaults,
		testOptionsGroupRange,
		testOptionsCaseRange,
		testOptionsSubtestRange,
		testOptionsSleepRange,
		testOptionsResponseChars,
		testOptionsShowProgressCascade,
		testOptionsBatchModeCascade,
		testOptionsSummarizeCascade,
		testOptionsNilReceivers,
		testOptionsCurrentTest,
	}
}

func testOptionsDefaults(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 1, GroupOptionsName, "defaults")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("filters unrestricted") {
		st.Pass(o.Group() == 0)
		st.Pass(o.GroupName() == "")
		st.Pass(o.Case() == 0)
		st.Pass(o.Subtest() == 0)
	}
	if st.NextSubtest("progress on, rest off") {
		st.Pass(o.ShowProgress())
		st.Pass(!o.Verbose())
		st.Pass(!o.Interactive())
		st.Pass(!o.BatchMode())
		st.Pass(!o.StopOnError())
	}
	if st.NextSubtest("numeric defaults") {
		st.Pass(o.SleepTime() == 0)
		st.Pass(o.CurrentTest() == options.NoCurrentTest)
		st.Pass(o.ResponseBefore() == options.NoResponse)
		st.Pass(o.ResponseAfter() == options.NoResponse)
	}
	return st
}

func testOptionsGroupRange(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 2, GroupOptionsName, "group range")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("accepts in-range") {
		st.Pass(o.SetGroup(0) == nil)
		st.Pass(o.SetGroup(options.MaxTestNumber-1) == nil)
		st.Pass(o.Group() == options.MaxTestNumber-1)
	}
	if st.NextSubtest("rejects above max and resets") {
		st.Pass(o.SetGroup(options.MaxTestNumber+1) != nil)
		st.Pass(o.Group() == 0)
	}
	if st.NextSubtest("rejects negative and resets") {
		_ = o.SetGroup(42)
		st.Pass(o.SetGroup(-1) != nil)
		st.Pass(o.Group() == 0)
	}
	return st
}

func testOptionsCaseRange(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 3, GroupOptionsName, "case range")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("accepts in-range") {
		st.Pass(o.SetCase(17) == nil)
		st.Pass(o.Case() == 17)
	}
	if st.NextSubtest("rejects out-of-range and resets") {
		st.Pass(o.SetCase(options.MaxTestNumber) != nil)
		st.Pass(o.Case() == 0)
	}
	if st.NextSubtest("name filter independent") {
		st.Pass(o.SetCaseName("parsing") == nil)
		st.Pass(o.CaseName() == "parsing")
		st.Pass(o.Case() == 0)
	}
	return st
}

func testOptionsSubtestRange(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 4, GroupOptionsName, "sub-test range")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("accepts bounds") {
		st.Pass(o.SetSubtest(0) == nil)
		st.Pass(o.SetSubtest(options.MaxSubtestNumber) == nil)
		st.Pass(o.Subtest() == options.MaxSubtestNumber)
	}
	if st.NextSubtest("rejects and keeps prior value") {
		st.Pass(o.SetSubtest(options.MaxSubtestNumber+1) != nil)
		st.Pass(o.Subtest() == options.MaxSubtestNumber)
	}
	return st
}

func testOptionsSleepRange(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 5, GroupOptionsName, "sleep range")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("accepts bounds") {
		st.Pass(o.SetSleepTimeMS(0) == nil)
		st.Pass(o.SetSleepTimeMS(3_600_000) == nil)
		st.Pass(o.SleepTime() == time.Hour)
	}
	if st.NextSubtest("rejects and keeps prior value") {
		st.Pass(o.SetSleepTimeMS(3_600_001) != nil)
		st.Pass(o.SleepTime() == time.Hour)
		st.Pass(o.SetSleepTimeMS(-1) != nil)
		st.Pass(o.SleepTime() == time.Hour)
	}
	return st
}

func testOptionsResponseChars(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 6, GroupOptionsName, "response characters")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("before accepts c s a q") {
		for _, c := range []byte{'c', 's', 'a', 'q'} {
			st.Pass(o.SetResponseBefore(c) == nil)
			st.Pass(o.ResponseBefore() == c)
		}
	}
	if st.NextSubtest("uppercase normalized") {
		st.Pass(o.SetResponseBefore('S') == nil)
		st.Pass(o.ResponseBefore() == 's')
		st.Pass(o.SetResponseAfter('F') == nil)
		st.Pass(o.ResponseAfter() == 'f')
	}
	if st.NextSubtest("invalid rejected, field unchanged") {
		st.Pass(o.SetResponseBefore('x') != nil)
		st.Pass(o.ResponseBefore() == 's')
		st.Pass(o.SetResponseAfter('c') != nil)
		st.Pass(o.ResponseAfter() == 'f')
	}
	if st.NextSubtest("zero clears") {
		st.Pass(o.SetResponseBefore(0) == nil)
		st.Pass(o.ResponseBefore() == options.NoResponse)
	}
	return st
}

func testOptionsShowProgressCascade(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 7, GroupOptionsName, "show-progress cascade")
	if !ok {
		return st
	}

	o := options.New()
	o.SetVerbose(true)
	o.SetShowValues(true)
	o.SetShowStepNumbers(true)

	if st.NextSubtest("disabling clears dependents") {
		o.SetShowProgress(false)
		st.Pass(!o.ShowProgress())
		st.Pass(!o.ShowStepNumbers())
		st.Pass(!o.ShowValues())
		st.Pass(!o.Verbose())
	}
	if st.NextSubtest("re-enabling restores nothing") {
		o.SetShowProgress(true)
		st.Pass(o.ShowProgress())
		st.Pass(!o.ShowStepNumbers())
		st.Pass(!o.ShowValues())
		st.Pass(!o.Verbose())
	}
	return st
}

func testOptionsBatchModeCascade(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 8, GroupOptionsName, "batch-mode cascade")
	if !ok {
		return st
	}

	o := options.New()
	o.SetVerbose(true)
	o.SetShowValues(true)

	if st.NextSubtest("enabling arms auto-responses") {
		o.SetBatchMode(true)
		st.Pass(o.BatchMode())
		st.Pass(o.Interactive())
		st.Pass(o.ResponseBefore() == options.ResponseContinue)
		st.Pass(o.ResponseAfter() == options.ResponsePass)
		st.Pass(!o.ShowValues())
		st.Pass(!o.Verbose())
	}
	if st.NextSubtest("disabling has no extra effect") {
		o.SetBatchMode(false)
		st.Pass(!o.BatchMode())
		st.Pass(o.Interactive())
		st.Pass(o.ResponseBefore() == options.ResponseContinue)
	}
	return st
}

func testOptionsSummarizeCascade(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 9, GroupOptionsName, "summarize cascade")
	if !ok {
		return st
	}

	o := options.New()
	o.SetInteractive(true)
	o.SetCasePause(true)

	if st.NextSubtest("enabling clears interactivity") {
		o.SetSummarize(true)
		st.Pass(o.Summarize())
		st.Pass(!o.Interactive())
		st.Pass(!o.CasePause())
	}
	if st.NextSubtest("disabling restores nothing") {
		o.SetSummarize(false)
		st.Pass(!o.Interactive())
		st.Pass(!o.CasePause())
	}
	return st
}

func testOptionsNilReceivers(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 10, GroupOptionsName, "nil receivers")
	if !ok {
		return st
	}

	var o *options.Options
	if st.NextSubtest("getters return defaults") {
		st.Pass(o.Group() == 0)
		st.Pass(o.GroupName() == "")
		st.Pass(!o.Verbose())
		st.Pass(o.SleepTime() == 0)
		st.Pass(o.CurrentTest() == options.NoCurrentTest)
		st.Pass(o.ResponseBefore() == options.NoResponse)
		st.Pass(o.Session() != nil)
	}
	if st.NextSubtest("setters report failure without faulting") {
		st.Pass(o.SetGroup(1) != nil)
		st.Pass(o.SetSleepTimeMS(10) != nil)
		o.SetVerbose(true) // must not fault
		st.Pass(!o.Verbose())
	}
	return st
}

func testOptionsCurrentTest(opts *options.Options) *status.Status {
	st, ok := begin(opts, GroupOptions, 11, GroupOptionsName, "current test number")
	if !ok {
		return st
	}

	o := options.New()
	if st.NextSubtest("accepts sentinel and indices") {
		st.Pass(o.SetCurrentTest(options.NoCurrentTest) == nil)
		st.Pass(o.SetCurrentTest(0) == nil)
		st.Pass(o.SetCurrentTest(12) == nil)
		st.Pass(o.CurrentTest() == 12)
	}
	if st.NextSubtest("rejects below sentinel") {
		st.Pass(o.SetCurrentTest(-2) != nil)
		st.Pass(o.CurrentTest() == 12)
	}
	return st
}
