// Package reporting renders battery results for humans: the per-test result
// line and the end-of-run summary table. The rendered text is presentation
// only; the counts and coordinates it shows come straight from the registry
// aggregates.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/batterykit/battery/status"
)

// Summary is the flattened aggregate view of one battery run.
type Summary struct {
	BatteryName string
	RunID       string

	Loaded   int
	Run      int
	Subtests int
	Errors   int

	// Coordinates of the first failure; FirstTest is -1 when all passed.
	FirstTest    int
	FirstGroup   int
	FirstCase    int
	FirstSubtest int

	Duration time.Duration
	Stopped  bool
}

// Passed reports whether the whole run passed.
func (s Summary) Passed() bool {
	return s.Errors == 0
}

// ResultLine formats the one-line verdict for a completed test case.
func ResultLine(st *status.Status) string {
	verdict := getResultString(st)
	return fmt.Sprintf("Group %d %q / Case %d %q / Subtests %d and below: %s (%s)",
		st.Group(), st.GroupName(), st.Case(), st.CaseName(),
		st.SubtestCount(), verdict, FormatDuration(st.Duration()))
}

// getResultString returns a colored string representing the test result
func getResultString(st *status.Status) string {
	switch {
	case st.Disposition() == status.DidNotTest:
		return text.FgYellow.Sprint("SKIPPED")
	case st.IsOkay():
		return text.FgGreen.Sprint("PASSED")
	default:
		return text.FgRed.Sprint("FAILED")
	}
}

// Table renders the summary as a bordered table, styled by outcome the way
// every battery operator expects: green all-pass, red otherwise.
func (s Summary) Table() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Battery Results (%s)", FormatDuration(s.Duration)))

	t.AppendHeader(table.Row{
		"Battery", "Run ID", "Loaded", "Run", "Sub-tests", "Failures", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Run ID", WidthMax: 36, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Loaded", Align: text.AlignRight},
		{Name: "Run", Align: text.AlignRight},
		{Name: "Sub-tests", Align: text.AlignRight},
		{Name: "Failures", Align: text.AlignRight},
	})

	t.AppendRow(table.Row{
		s.BatteryName,
		s.RunID,
		s.Loaded,
		s.Run,
		s.Subtests,
		s.Errors,
		s.statusCell(),
	})

	if !s.Passed() {
		t.AppendSeparator()
		t.AppendRow(table.Row{
			"first failure", s.FirstFailureString(), "", "", "", "", "",
		})
	}

	if s.Passed() {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	return t.Render()
}

func (s Summary) statusCell() string {
	if s.Passed() {
		if s.Stopped {
			return "✓ pass (stopped early)"
		}
		return "✓ pass"
	}
	return "✗ fail"
}

// FirstFailureString formats the coordinates of the first failing test, or
// "none" when the run passed.
func (s Summary) FirstFailureString() string {
	if s.Passed() {
		return "none"
	}
	return fmt.Sprintf("test #%d, group %d, case %d, sub-test %d",
		s.FirstTest, s.FirstGroup, s.FirstCase, s.FirstSubtest)
}

// String renders the single-line form used in logs and error messages.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d run, %d sub-tests, %d failures in %s",
		s.Run, s.Subtests, s.Errors, FormatDuration(s.Duration))
	if !s.Passed() {
		fmt.Fprintf(&b, " (first failure: %s)", s.FirstFailureString())
	}
	return b.String()
}

func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
