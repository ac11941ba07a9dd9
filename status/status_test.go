package status

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batterykit/battery/options"
)

func quietOptions(t *testing.T) *options.Options {
	t.Helper()
	o := options.New()
	o.SetShowProgress(false)
	o.SetSession(&options.Session{Out: io.Discard})
	return o
}

func initialized(t *testing.T, o *options.Options) *Status {
	t.Helper()
	st := New()
	proceed, err := st.Initialize(o, 1, 1, "group", "case")
	require.NoError(t, err)
	require.True(t, proceed)
	return st
}

func TestZeroValueIsAborted(t *testing.T) {
	st := New()
	assert.Equal(t, Aborted, st.Disposition())
	assert.False(t, st.IsOkay())

	ok, stop := st.Dispose()
	assert.False(t, ok)
	assert.True(t, stop)
}

func TestInitialize(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		o := quietOptions(t)
		st := New()
		proceed, err := st.Initialize(o, 3, 7, "g", "c")
		require.NoError(t, err)
		assert.True(t, proceed)
		assert.Equal(t, Continue, st.Disposition())
		assert.Equal(t, 3, st.Group())
		assert.Equal(t, "g", st.GroupName())
		assert.Equal(t, 7, st.Case())
		assert.Equal(t, "c", st.CaseName())
		assert.False(t, st.StartTime().IsZero())
	})

	t.Run("invalid arguments", func(t *testing.T) {
		o := quietOptions(t)
		tests := []struct {
			name      string
			opts      *options.Options
			group     int
			caseNum   int
			groupName string
			caseName  string
		}{
			{"nil options", nil, 1, 1, "g", "c"},
			{"empty group name", o, 1, 1, "", "c"},
			{"empty case name", o, 1, 1, "g", ""},
			{"zero group", o, 0, 1, "g", "c"},
			{"negative case", o, 1, -1, "g", "c"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				st := New()
				proceed, err := st.Initialize(tc.opts, tc.group, tc.caseNum, tc.groupName, tc.caseName)
				assert.Error(t, err)
				assert.False(t, proceed)
				assert.Equal(t, Aborted, st.Disposition())
			})
		}
	})

	t.Run("repeatable with identical arguments", func(t *testing.T) {
		o := quietOptions(t)
		st := New()

		first, err := st.Initialize(o, 1, 1, "g", "c")
		require.NoError(t, err)
		st.NextSubtest("x")
		st.Fail()

		second, err := st.Initialize(o, 1, 1, "g", "c")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 0, st.ErrorCount(), "counters reset on re-initialization")
		assert.Equal(t, 0, st.SubtestCount())
	})
}

func TestSelectionFilters(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*options.Options)
		group   int
		caseNum int
		gName   string
		cName   string
		want    bool
	}{
		{"unrestricted", func(o *options.Options) {}, 1, 1, "g", "c", true},
		{"group number match", func(o *options.Options) { _ = o.SetGroup(2) }, 2, 1, "g", "c", true},
		{"group number mismatch", func(o *options.Options) { _ = o.SetGroup(2) }, 3, 1, "g", "c", false},
		{"group name match", func(o *options.Options) { _ = o.SetGroupName("g") }, 9, 1, "g", "c", true},
		{"group name mismatch", func(o *options.Options) { _ = o.SetGroupName("z") }, 9, 1, "g", "c", false},
		{"number outranks name", func(o *options.Options) {
			_ = o.SetGroup(4)
			_ = o.SetGroupName("z")
		}, 4, 1, "g", "c", true},
		{"case number mismatch", func(o *options.Options) { _ = o.SetCase(5) }, 1, 6, "g", "c", false},
		{"case name match", func(o *options.Options) { _ = o.SetCaseName("c") }, 1, 6, "g", "c", true},
		{"both filters must pass", func(o *options.Options) {
			_ = o.SetGroup(1)
			_ = o.SetCase(2)
		}, 1, 3, "g", "c", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := quietOptions(t)
			tc.setup(o)
			st := New()
			proceed, err := st.Initialize(o, tc.group, tc.caseNum, tc.gName, tc.cName)
			require.NoError(t, err)
			assert.Equal(t, tc.want, proceed)
			if !tc.want {
				assert.Equal(t, DidNotTest, st.Disposition())
				assert.True(t, st.Result(), "a filtered-out test counts as a pass")
			}
		})
	}
}

func TestNextSubtest(t *testing.T) {
	t.Run("counter advances on every call", func(t *testing.T) {
		st := initialized(t, quietOptions(t))
		assert.True(t, st.NextSubtest("a"))
		assert.True(t, st.NextSubtest("b"))
		assert.Equal(t, 2, st.SubtestCount())
		assert.Equal(t, "b", st.SubtestName())
	})

	t.Run("ordinal filter", func(t *testing.T) {
		o := quietOptions(t)
		require.NoError(t, o.SetSubtest(2))
		st := initialized(t, o)

		assert.False(t, st.NextSubtest("a"))
		assert.True(t, st.NextSubtest("b"))
		assert.False(t, st.NextSubtest("c"))
		assert.Equal(t, 3, st.SubtestCount(), "the counter keeps numbering skipped sub-tests")
	})

	t.Run("tag filter", func(t *testing.T) {
		o := quietOptions(t)
		require.NoError(t, o.SetSubtestName("wanted"))
		st := initialized(t, o)

		assert.False(t, st.NextSubtest("other"))
		assert.True(t, st.NextSubtest("wanted"))
	})

	t.Run("nil receiver", func(t *testing.T) {
		var st *Status
		assert.False(t, st.NextSubtest("x"))
	})
}

func TestSummarizeListing(t *testing.T) {
	var buf bytes.Buffer
	o := options.New()
	o.SetShowProgress(false)
	o.SetSession(&options.Session{Out: &buf})
	o.SetSummarize(true)

	st := New()
	proceed, err := st.Initialize(o, 1, 2, "grp", "prompting")
	require.NoError(t, err)
	require.True(t, proceed)

	assert.False(t, st.NextSubtest("first"), "summarize mode never executes bodies")
	assert.False(t, st.NextSubtest("second"))

	out := buf.String()
	assert.Contains(t, out, `"prompting"`)
	assert.Contains(t, out, `sub-test 1 "first"`)
	assert.Contains(t, out, `sub-test 2 "second"`)
	assert.Equal(t, 2, st.SubtestCount())
}

func TestPassFailCounting(t *testing.T) {
	st := initialized(t, quietOptions(t))

	st.NextSubtest("a")
	st.Pass(true)
	assert.True(t, st.Passed())
	assert.Equal(t, 0, st.ErrorCount())

	st.NextSubtest("b")
	st.Pass(false)
	st.NextSubtest("c")
	st.Pass(true)

	// The verdict is cumulative; the last flag cannot launder a failure.
	assert.False(t, st.Passed())
	assert.True(t, st.Result())
	assert.Equal(t, 1, st.ErrorCount())

	st.NextSubtest("d")
	st.Fail()
	assert.Equal(t, 2, st.ErrorCount())
}

func TestFirstFailedSubtestIsSticky(t *testing.T) {
	st := initialized(t, quietOptions(t))

	st.NextSubtest("a")
	st.Pass(true)
	assert.Equal(t, 0, st.FirstFailedSubtest())

	st.NextSubtest("b")
	st.Fail()
	assert.Equal(t, 2, st.FirstFailedSubtest())

	st.NextSubtest("c")
	st.Fail()
	assert.Equal(t, 2, st.FirstFailedSubtest(), "the first failure never moves")
}

func TestDispose(t *testing.T) {
	tests := []struct {
		name        string
		disposition Disposition
		fail        bool
		wantOk      bool
		wantStop    bool
	}{
		{"continue clean", Continue, false, true, false},
		{"continue with failures", Continue, true, false, false},
		{"did not test", DidNotTest, false, true, false},
		{"did not test with failures still passes", DidNotTest, true, true, false},
		{"failed", Failed, false, false, false},
		{"quitted", Quitted, false, true, true},
		{"quitted with failures still passes", Quitted, true, true, true},
		{"aborted", Aborted, false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := initialized(t, quietOptions(t))
			if tc.fail {
				st.NextSubtest("x")
				st.Fail()
			}
			st.SetDisposition(tc.disposition)

			ok, stop := st.Dispose()
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.wantStop, stop)
			assert.Equal(t, tc.wantOk, st.Result())
		})
	}

	t.Run("force failure flips a clean continue", func(t *testing.T) {
		o := quietOptions(t)
		o.SetForceFailure(true)
		st := initialized(t, o)
		st.NextSubtest("x")
		st.Pass(true)

		ok, stop := st.Dispose()
		assert.False(t, ok)
		assert.False(t, stop)
	})

	t.Run("force failure does not touch skipped tests", func(t *testing.T) {
		o := quietOptions(t)
		o.SetForceFailure(true)
		st := initialized(t, o)
		st.Skip()

		ok, _ := st.Dispose()
		assert.True(t, ok)
	})
}

func TestIsOkay(t *testing.T) {
	o := quietOptions(t)

	st := initialized(t, o)
	assert.True(t, st.IsOkay())

	st.Quit()
	assert.True(t, st.IsOkay(), "a user-directed stop is not a failure")

	st.Skip()
	assert.True(t, st.IsOkay())

	st.Abort()
	assert.False(t, st.IsOkay())

	failed := initialized(t, o)
	failed.NextSubtest("x")
	failed.Fail()
	assert.False(t, failed.IsOkay())
}

func TestResetCountsForTest(t *testing.T) {
	st := initialized(t, quietOptions(t))
	st.NextSubtest("a")
	st.Fail()
	st.NextSubtest("b")
	st.Fail()

	st.ResetCountsForTest()
	assert.True(t, st.Passed())
	assert.Equal(t, 0, st.ErrorCount())
	assert.Equal(t, 0, st.FirstFailedSubtest())
	assert.Equal(t, 2, st.SubtestCount(), "reset clears verdicts, not progress")

	st.NextSubtest("c")
	st.Fail()
	assert.Equal(t, 3, st.FirstFailedSubtest())
}

func TestDuration(t *testing.T) {
	st := initialized(t, quietOptions(t))
	st.Finish()
	assert.GreaterOrEqual(t, st.Duration().Nanoseconds(), int64(0))
	assert.False(t, st.StartTime().IsZero())

	var nilStatus *Status
	assert.Equal(t, int64(0), nilStatus.Duration().Nanoseconds())
}

func TestStepNumberOutput(t *testing.T) {
	var buf bytes.Buffer
	o := options.New()
	o.SetShowStepNumbers(true)
	o.SetSession(&options.Session{Out: &buf})

	st := New()
	proceed, err := st.Initialize(o, 1, 1, "g", "c")
	require.NoError(t, err)
	require.True(t, proceed)

	st.NextSubtest("check the wiring")
	assert.True(t, strings.Contains(buf.String(), "step 1"))
	assert.True(t, strings.Contains(buf.String(), "check the wiring"))
}
