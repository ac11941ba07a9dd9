package status

import (
	"fmt"

	"github.com/batterykit/battery/options"
)

// The interactive prompt protocol. Both prompts honor the same override
// chain: if the Options say non-interactive, the prompt is skipped entirely
// with no I/O; otherwise a response override stored on the Options (set by
// --rb/--ra or batch mode) answers first, then the Session auto-response
// (the deterministic-replay hook), and only then is the user asked on the
// session's input stream. Unrecognized input and 'h' print the accepted
// responses and ask again.

// Prompt is shown before an interactive action. It returns whether the
// action should proceed. When it does not proceed the disposition records
// why: skip and quit count as a pass, abort counts as a failure.
func (s *Status) Prompt(message string) bool {
	if s == nil {
		return false
	}
	if !s.opts.Interactive() {
		s.disposition = DidNotTest
		s.result = true
		return false
	}

	c := s.opts.ResponseBefore()
	if c == options.NoResponse {
		c = s.opts.Session().AutoBefore
	}
	if !validBefore(c) {
		c = s.ask(message, "[c]ontinue, [s]kip, [q]uit, [a]bort", validBefore)
	}

	switch c {
	case options.ResponseContinue:
		return true
	case options.ResponseSkip:
		s.disposition = DidNotTest
		s.result = true
		return false
	case options.ResponseQuit:
		s.disposition = Quitted
		s.result = true
		return false
	default: // abort, or input exhausted
		s.disposition = Aborted
		s.result = false
		return false
	}
}

// Response is shown after an interactive action to let the user declare its
// outcome. It returns whether the action was declared successful: pass and
// quit return true, fail and abort record a failed sub-test and return
// false.
func (s *Status) Response(message string) bool {
	if s == nil {
		return false
	}
	if !s.opts.Interactive() {
		s.disposition = DidNotTest
		s.result = true
		return true
	}

	c := s.opts.ResponseAfter()
	if c == options.NoResponse {
		c = s.opts.Session().AutoAfter
	}
	if !validAfter(c) {
		c = s.ask(message, "[p]ass, [f]ail, [q]uit, [a]bort", validAfter)
	}

	switch c {
	case options.ResponsePass:
		s.Pass(true)
		return true
	case options.ResponseFail:
		s.Fail()
		return false
	case options.ResponseQuit:
		s.disposition = Quitted
		s.result = true
		return true
	default: // abort, or input exhausted
		s.disposition = Aborted
		s.Fail()
		return false
	}
}

// ask reads responses from the session until one passes the validator.
// Input exhaustion yields 0, which the callers score as abort.
func (s *Status) ask(message, choices string, valid func(byte) bool) byte {
	sess := s.opts.Session()
	for {
		if s.opts.BeepPrompt() {
			fmt.Fprint(sess.Out, "\a")
		}
		fmt.Fprintf(sess.Out, "%s %s: ", message, choices)

		line, err := sess.ReadLine()
		if line == "" && err != nil {
			return 0
		}
		if line != "" {
			c := lowerByte(line[0])
			if valid(c) {
				return c
			}
			if c != options.ResponseHelp {
				fmt.Fprintf(sess.Out, "unrecognized response %q\n", line)
			}
		}
		fmt.Fprintf(sess.Out, "respond with one of %s, or h for this help\n", choices)
	}
}

func validBefore(c byte) bool {
	switch c {
	case options.ResponseContinue, options.ResponseSkip, options.ResponseQuit, options.ResponseAbort:
		return true
	}
	return false
}

func validAfter(c byte) bool {
	switch c {
	case options.ResponsePass, options.ResponseFail, options.ResponseQuit, options.ResponseAbort:
		return true
	}
	return false
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
