package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batterykit/battery/logging"
	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/status"
)

func quietOptions() *options.Options {
	o := options.New()
	o.SetShowProgress(false)
	o.SetSilent(true)
	o.SetSession(&options.Session{Out: io.Discard})
	return o
}

func discardLog() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func simpleTest(group, caseNum int, fail bool) registry.TestFunc {
	return func(o *options.Options) *status.Status {
		st := status.New()
		proceed, err := st.Initialize(o, group, caseNum, "grp", fmt.Sprintf("case-%d", caseNum))
		if err != nil || !proceed {
			return st
		}
		if st.NextSubtest("step one") {
			st.Pass(true)
		}
		if st.NextSubtest("step two") {
			st.Pass(!fail)
		}
		return st
	}
}

func buildRegistry(t *testing.T, o *options.Options, fns ...registry.TestFunc) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.Config{Log: discardLog(), Options: o})
	require.NoError(t, err)
	for _, fn := range fns {
		require.NoError(t, reg.Load(fn))
	}
	return reg
}

func runBattery(t *testing.T, o *options.Options, fns ...registry.TestFunc) *Result {
	t.Helper()
	reg := buildRegistry(t, o, fns...)
	tr, err := NewTestRunner(Config{Registry: reg, Log: discardLog(), BatteryName: "test"})
	require.NoError(t, err)
	result, err := tr.Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestNewTestRunner(t *testing.T) {
	t.Run("requires a registry", func(t *testing.T) {
		_, err := NewTestRunner(Config{})
		assert.Error(t, err)
	})

	t.Run("defaults the rest", func(t *testing.T) {
		reg := buildRegistry(t, quietOptions(), simpleTest(1, 1, false))
		tr, err := NewTestRunner(Config{Registry: reg})
		require.NoError(t, err)
		assert.NotNil(t, tr)
	})
}

func TestRunAllPass(t *testing.T) {
	result := runBattery(t, quietOptions(),
		simpleTest(1, 1, false),
		simpleTest(1, 2, false),
		simpleTest(2, 1, false),
	)

	assert.True(t, result.Passed())
	assert.False(t, result.Stopped)
	assert.Equal(t, 3, result.Stats.Loaded)
	assert.Equal(t, 3, result.Stats.Run)
	assert.Equal(t, 6, result.Stats.Subtests)
	assert.Equal(t, 0, result.Stats.Errors)
	assert.Equal(t, registry.NoFailure, result.FirstTest)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Statuses, 3)
}

func TestRunFailureAggregation(t *testing.T) {
	result := runBattery(t, quietOptions(),
		simpleTest(1, 1, false),
		simpleTest(1, 2, true),
		simpleTest(2, 1, true),
		simpleTest(2, 2, false),
	)

	assert.False(t, result.Passed())
	assert.False(t, result.Stopped)
	assert.Equal(t, 4, result.Stats.Run)
	assert.Equal(t, 2, result.Stats.Errors)

	assert.Equal(t, 1, result.FirstTest)
	assert.Equal(t, 1, result.FirstGroup)
	assert.Equal(t, 2, result.FirstCase)
	assert.Equal(t, 2, result.FirstSubtest)
}

func TestRunStopOnError(t *testing.T) {
	o := quietOptions()
	o.SetStopOnError(true)

	result := runBattery(t, o,
		simpleTest(1, 1, false),
		simpleTest(1, 2, true),
		simpleTest(1, 3, false),
	)

	assert.True(t, result.Stopped)
	assert.Equal(t, 2, result.Stats.Run)
	assert.Equal(t, 1, result.Stats.Errors)
	assert.Len(t, result.Statuses, 2)
}

func TestRunStoppingDispositions(t *testing.T) {
	quitter := func(o *options.Options) *status.Status {
		st := status.New()
		if proceed, _ := st.Initialize(o, 1, 2, "grp", "quitter"); proceed {
			st.Quit()
		}
		return st
	}
	aborter := func(o *options.Options) *status.Status {
		st := status.New()
		if proceed, _ := st.Initialize(o, 1, 2, "grp", "aborter"); proceed {
			st.Abort()
		}
		return st
	}

	t.Run("quit stops and passes", func(t *testing.T) {
		result := runBattery(t, quietOptions(),
			simpleTest(1, 1, false), quitter, simpleTest(1, 3, false))
		assert.True(t, result.Stopped)
		assert.True(t, result.Passed())
		assert.Equal(t, 2, result.Stats.Run)
	})

	t.Run("abort stops and fails", func(t *testing.T) {
		result := runBattery(t, quietOptions(),
			simpleTest(1, 1, false), aborter, simpleTest(1, 3, false))
		assert.True(t, result.Stopped)
		assert.False(t, result.Passed())
		assert.Equal(t, 1, result.Stats.Errors)
	})
}

func TestRunNilStatus(t *testing.T) {
	nilStatus := func(o *options.Options) *status.Status { return nil }

	result := runBattery(t, quietOptions(),
		simpleTest(1, 1, false), nilStatus, simpleTest(1, 3, false))

	assert.False(t, result.Passed())
	assert.False(t, result.Stopped, "one bad entry must not mask the rest of the battery")
	assert.Equal(t, 3, result.Stats.Run)
	assert.Equal(t, 1, result.Stats.Errors)
}

func TestRunSubtestProtocol(t *testing.T) {
	lazy := func(o *options.Options) *status.Status {
		st := status.New()
		_, _ = st.Initialize(o, 1, 2, "grp", "lazy")
		return st
	}

	t.Run("violation fails and stops", func(t *testing.T) {
		o := quietOptions()
		o.SetNeedSubtests(true)
		result := runBattery(t, o,
			simpleTest(1, 1, false), lazy, simpleTest(1, 3, false))

		assert.False(t, result.Passed())
		assert.True(t, result.Stopped)
		assert.Equal(t, 2, result.Stats.Run)
		assert.Equal(t, 2, result.FirstCase)
	})

	t.Run("no requirement, no violation", func(t *testing.T) {
		result := runBattery(t, quietOptions(),
			simpleTest(1, 1, false), lazy, simpleTest(1, 3, false))
		assert.True(t, result.Passed())
		assert.False(t, result.Stopped)
	})

	t.Run("skipped tests are exempt", func(t *testing.T) {
		o := quietOptions()
		o.SetNeedSubtests(true)
		require.NoError(t, o.SetCase(1))
		// lazy is case 2: filtered out, so its empty sub-test count is fine.
		result := runBattery(t, o,
			simpleTest(1, 1, false), lazy, simpleTest(2, 1, false))
		assert.True(t, result.Passed())
	})
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := buildRegistry(t, quietOptions(),
		simpleTest(1, 1, false), simpleTest(1, 2, false))
	tr, err := NewTestRunner(Config{Registry: reg, Log: discardLog()})
	require.NoError(t, err)

	result, err := tr.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 1, result.Stats.Run, "cancellation takes effect between tests")
}

func TestRunEmptyRegistry(t *testing.T) {
	reg, err := registry.NewRegistry(registry.Config{Log: discardLog(), Options: quietOptions()})
	require.NoError(t, err)
	tr, err := NewTestRunner(Config{Registry: reg, Log: discardLog()})
	require.NoError(t, err)

	_, err = tr.Run(context.Background())
	assert.Error(t, err)
}

func TestRunKeepsConfiguredRunID(t *testing.T) {
	reg := buildRegistry(t, quietOptions(), simpleTest(1, 1, false))
	tr, err := NewTestRunner(Config{Registry: reg, Log: discardLog(), RunID: "fixed-id"})
	require.NoError(t, err)

	result, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.RunID)
}

func TestRunResultLines(t *testing.T) {
	var out bytes.Buffer
	o := options.New()
	o.SetShowProgress(false)
	o.SetSession(&options.Session{Out: &out})

	runBattery(t, o, simpleTest(1, 1, false), simpleTest(1, 2, true))

	assert.Equal(t, 2, strings.Count(out.String(), "Group 1"))
	assert.Contains(t, out.String(), "Subtests 2 and below")
}

func TestRunSummarizeMode(t *testing.T) {
	var out bytes.Buffer
	o := options.New()
	o.SetShowProgress(false)
	o.SetSilent(true)
	o.SetSession(&options.Session{Out: &out})
	o.SetSummarize(true)

	executed := false
	observing := func(o *options.Options) *status.Status {
		st := status.New()
		proceed, _ := st.Initialize(o, 1, 1, "grp", "observing")
		if !proceed {
			return st
		}
		if st.NextSubtest("body") {
			executed = true
		}
		return st
	}

	result := runBattery(t, o, observing)
	assert.True(t, result.Passed())
	assert.False(t, executed, "summarize mode lists bodies without running them")
	assert.Contains(t, out.String(), `sub-test 1 "body"`)
	assert.NotContains(t, out.String(), "Group 1 ", "no result lines in summarize mode")
}

func TestRunWithFileLogger(t *testing.T) {
	dir := t.TempDir()
	fl, err := logging.NewFileLogger(dir, "run-1")
	require.NoError(t, err)

	reg := buildRegistry(t, quietOptions(),
		simpleTest(1, 1, false), simpleTest(1, 2, true))
	tr, err := NewTestRunner(Config{
		Registry: reg, Log: discardLog(), RunID: "run-1", FileLogger: fl,
	})
	require.NoError(t, err)

	_, err = tr.Run(context.Background())
	require.NoError(t, err)

	all, err := os.ReadFile(filepath.Join(fl.LogDir(), logging.AllResultsFilename))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(all), "\n"))

	failures, err := filepath.Glob(filepath.Join(fl.LogDir(), logging.FailedDirName, "*.log"))
	require.NoError(t, err)
	assert.Len(t, failures, 1)
}
