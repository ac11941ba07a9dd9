// Package exitcodes defines the standard exit codes used by battery.
package exitcodes

// Exit code constants used by battery applications
// These constants define the exit codes that a battery binary uses to
// indicate various states when it exits:
//
// * Success (0): Used when every selected test case passes
// * TestFailure (1): Used when one or more test cases fail
// * RuntimeErr (2): Used for runtime errors such as bad options, failed
//   setup or an empty registry
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors or setup failures
)
