package status

// Disposition is the control-flow outcome of a test case, distinct from its
// pass/fail result: it tells the run loop what to do next, while the
// sub-test error count tells it whether the test passed.
type Disposition int

const (
	// Aborted is the zero value on purpose. A bare Status is unsafe until
	// Initialize succeeds; treating "never initialized" as a hard stop with
	// a failed result means forgetting to initialize cannot be mistaken for
	// a passing test.
	Aborted Disposition = iota

	// Continue means the test proceeds normally.
	Continue

	// DidNotTest means the test was deliberately skipped; it counts as a
	// pass.
	DidNotTest

	// Failed means the test is forced to a failing result but the run
	// continues.
	Failed

	// Quitted means testing stops at this test's request; the test itself
	// counts as a pass.
	Quitted
)

// String implements fmt.Stringer.
func (d Disposition) String() string {
	switch d {
	case Aborted:
		return "aborted"
	case Continue:
		return "continue"
	case DidNotTest:
		return "did-not-test"
	case Failed:
		return "failed"
	case Quitted:
		return "quitted"
	default:
		return "unknown"
	}
}

// Stops reports whether this disposition tells the run loop to stop after
// the current test.
func (d Disposition) Stops() bool {
	return d == Quitted || d == Aborted
}
