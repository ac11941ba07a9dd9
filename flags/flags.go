// Package flags owns the battery command-line vocabulary.
//
// The vocabulary is declared as urfave/cli flags so the application shell
// renders help and environment hints the usual way, but application onto the
// Options record is an explicit left-to-right walk over argv: later flags
// override earlier ones, which matters because several setters carry
// documented side effects (batch mode arms auto-responses, summarize clears
// interactivity). A positionless flag parser cannot express that contract.
package flags

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/batterykit/battery/options"
)

const EnvVarPrefix = "BATTERY"

// Outcome tells the caller what to do after parsing.
type Outcome int

const (
	// OutcomeProceed means run the battery.
	OutcomeProceed Outcome = iota
	// OutcomeVersion means print the version and exit; earlier flags were
	// still applied.
	OutcomeVersion
	// OutcomeHelp means print usage and exit; earlier flags were still
	// applied.
	OutcomeHelp
)

// Flags documents the vocabulary for the application help surface. Parsing
// itself happens in Apply.
var Flags = []cli.Flag{
	&cli.StringFlag{Name: "group", Usage: "Restrict the run to one test group, by number or exact name"},
	&cli.StringFlag{Name: "case", Usage: "Restrict the run to one test case, by number or exact name"},
	&cli.StringFlag{Name: "sub-test", Aliases: []string{"subtest"}, Usage: "Restrict each case to one sub-test, by ordinal or exact tag"},
	&cli.IntFlag{Name: "sleep-time", Usage: "Milliseconds to sleep between test cases (0..3600000)"},
	&cli.StringFlag{Name: "response-before", Aliases: []string{"rb"}, Usage: "Auto-response for before-action prompts (c, s, a, q)"},
	&cli.StringFlag{Name: "response-after", Aliases: []string{"ra"}, Usage: "Auto-response for after-action prompts (p, f, a, q)"},
	&cli.StringFlag{Name: "config", Usage: "YAML file of option defaults, applied at its position in the argument list"},
	&cli.BoolFlag{Name: "verbose", Usage: "Per-step commentary (--no-verbose to disable)"},
	&cli.BoolFlag{Name: "show-progress", Usage: "Progress output; disabling also drops step numbers, values and verbosity"},
	&cli.BoolFlag{Name: "show-values", Usage: "Print the values tests check"},
	&cli.BoolFlag{Name: "show-step-numbers", Usage: "Print sub-test step numbers"},
	&cli.BoolFlag{Name: "stop-on-error", Usage: "Stop the run at the first failing test"},
	&cli.BoolFlag{Name: "batch-mode", Usage: "Unattended run: prompts answered automatically"},
	&cli.BoolFlag{Name: "interactive", Usage: "Enable the interactive prompt protocol"},
	&cli.BoolFlag{Name: "beeps", Usage: "Ring the terminal bell on prompts"},
	&cli.BoolFlag{Name: "summarize", Aliases: []string{"summary"}, Usage: "List tests and sub-tests without executing them"},
	&cli.BoolFlag{Name: "case-pause", Usage: "Wait for acknowledgment after each test case"},
	&cli.BoolFlag{Name: "require-sub-tests", Usage: "Treat a test that enters no sub-test as a protocol error"},
	&cli.BoolFlag{Name: "force-failure", Usage: "Report completed tests as failed (failure-path exercise)"},
	&cli.BoolFlag{Name: "text-synch", Usage: "Reserved"},
	&cli.BoolFlag{Name: "simulated", Usage: "Tests avoid real side effects"},
	&cli.BoolFlag{Name: "serve", Usage: "Run the healthz and metrics servers during the battery"},
	&cli.BoolFlag{Name: "silent", Usage: "Suppress option-processing output (scanned before all other flags)"},
	&cli.BoolFlag{Name: "hide-errors", Usage: "Suppress error output (scanned before all other flags)"},
}

// PrescanSilent applies --silent, --hide-errors and --no-silent before the
// main walk so that even the earliest option-processing output honors them.
func PrescanSilent(opts *options.Options, args []string) {
	for _, arg := range args {
		switch arg {
		case "--silent":
			opts.SetSilent(true)
		case "--no-silent":
			opts.SetSilent(false)
		case "--hide-errors":
			opts.SetHideErrors(true)
		}
	}
}

// Apply walks args left to right and applies each flag to opts. It returns
// OutcomeVersion or OutcomeHelp as soon as an informational flag is seen;
// flags before it have already taken effect. Unknown flags and invalid
// values are errors.
func Apply(opts *options.Options, args []string) (Outcome, error) {
	if opts == nil {
		return OutcomeProceed, fmt.Errorf("flags: options are required")
	}
	PrescanSilent(opts, args)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--version", "-v":
			return OutcomeVersion, nil
		case "--help":
			return OutcomeHelp, nil

		case "--silent", "--no-silent", "--hide-errors":
			// handled by PrescanSilent

		case "--verbose":
			opts.SetVerbose(true)
		case "--no-verbose":
			opts.SetVerbose(false)
		case "--show-progress":
			opts.SetShowProgress(true)
		case "--no-show-progress":
			opts.SetShowProgress(false)
		case "--show-values":
			opts.SetShowValues(true)
		case "--no-show-values":
			opts.SetShowValues(false)
		case "--show-step-numbers":
			opts.SetShowStepNumbers(true)
		case "--no-show-step-numbers":
			opts.SetShowStepNumbers(false)
		case "--stop-on-error":
			opts.SetStopOnError(true)
		case "--no-stop-on-error":
			opts.SetStopOnError(false)
		case "--batch-mode":
			opts.SetBatchMode(true)
		case "--no-batch-mode":
			opts.SetBatchMode(false)
		case "--interactive":
			opts.SetInteractive(true)
		case "--no-interactive":
			opts.SetInteractive(false)
		case "--beeps":
			opts.SetBeepPrompt(true)
		case "--no-beeps":
			opts.SetBeepPrompt(false)
		case "--summarize", "--summary":
			opts.SetSummarize(true)
		case "--no-summarize", "--no-summary":
			opts.SetSummarize(false)
		case "--case-pause":
			opts.SetCasePause(true)
		case "--no-case-pause":
			opts.SetCasePause(false)
		case "--require-sub-tests":
			opts.SetNeedSubtests(true)
		case "--no-require-sub-tests":
			opts.SetNeedSubtests(false)
		case "--force-failure":
			opts.SetForceFailure(true)
		case "--no-force-failure":
			opts.SetForceFailure(false)
		case "--text-synch":
			opts.SetTextSynch(true)
		case "--no-text-synch":
			opts.SetTextSynch(false)
		case "--simulated":
			opts.SetSimulated(true)
		case "--no-simulated":
			opts.SetSimulated(false)
		case "--serve":
			opts.SetServe(true)
		case "--no-serve":
			opts.SetServe(false)

		case "--group", "--case", "--sub-test", "--subtest",
			"--sleep-time", "--response-before", "--rb",
			"--response-after", "--ra", "--config":
			if i+1 >= len(args) {
				return OutcomeProceed, fmt.Errorf("flags: %s requires a value", arg)
			}
			i++
			if err := applyValued(opts, arg, args[i]); err != nil {
				return OutcomeProceed, err
			}

		default:
			return OutcomeProceed, fmt.Errorf("flags: unknown flag %q", arg)
		}
	}
	return OutcomeProceed, nil
}

func applyValued(opts *options.Options, flag, value string) error {
	switch flag {
	case "--group":
		if n, ok := parseNumber(value); ok {
			return opts.SetGroup(n)
		}
		return opts.SetGroupName(value)
	case "--case":
		if n, ok := parseNumber(value); ok {
			return opts.SetCase(n)
		}
		return opts.SetCaseName(value)
	case "--sub-test", "--subtest":
		if n, ok := parseNumber(value); ok {
			return opts.SetSubtest(n)
		}
		return opts.SetSubtestName(value)
	case "--sleep-time":
		n, ok := parseNumber(value)
		if !ok {
			return fmt.Errorf("flags: --sleep-time wants milliseconds, got %q", value)
		}
		return opts.SetSleepTimeMS(n)
	case "--response-before", "--rb":
		if len(value) != 1 {
			return fmt.Errorf("flags: %s wants a single character, got %q", flag, value)
		}
		return opts.SetResponseBefore(value[0])
	case "--response-after", "--ra":
		if len(value) != 1 {
			return fmt.Errorf("flags: %s wants a single character, got %q", flag, value)
		}
		return opts.SetResponseAfter(value[0])
	case "--config":
		return applyConfigFile(opts, value)
	default:
		return fmt.Errorf("flags: unknown valued flag %q", flag)
	}
}

func parseNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// fileOptions is the YAML schema of a --config defaults file. Pointer
// fields distinguish "absent" from "false"/zero so a file only overrides
// what it mentions.
type fileOptions struct {
	Group          *string `yaml:"group"`
	Case           *string `yaml:"case"`
	Subtest        *string `yaml:"sub_test"`
	SleepTimeMS    *int    `yaml:"sleep_time_ms"`
	Verbose        *bool   `yaml:"verbose"`
	ShowProgress   *bool   `yaml:"show_progress"`
	ShowValues     *bool   `yaml:"show_values"`
	ShowSteps      *bool   `yaml:"show_step_numbers"`
	StopOnError    *bool   `yaml:"stop_on_error"`
	BatchMode      *bool   `yaml:"batch_mode"`
	Interactive    *bool   `yaml:"interactive"`
	Beeps          *bool   `yaml:"beeps"`
	Summarize      *bool   `yaml:"summarize"`
	CasePause      *bool   `yaml:"case_pause"`
	NeedSubtests   *bool   `yaml:"require_sub_tests"`
	ForceFailure   *bool   `yaml:"force_failure"`
	Simulated      *bool   `yaml:"simulated"`
	ResponseBefore *string `yaml:"response_before"`
	ResponseAfter  *string `yaml:"response_after"`
}

// applyConfigFile loads YAML defaults and applies them at the --config
// flag's position, so flags to its right still win.
func applyConfigFile(opts *options.Options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("flags: failed to read config file: %w", err)
	}
	var fo fileOptions
	if err := yaml.Unmarshal(data, &fo); err != nil {
		return fmt.Errorf("flags: failed to parse config file %s: %w", path, err)
	}

	if fo.Group != nil {
		if err := applyValued(opts, "--group", *fo.Group); err != nil {
			return err
		}
	}
	if fo.Case != nil {
		if err := applyValued(opts, "--case", *fo.Case); err != nil {
			return err
		}
	}
	if fo.Subtest != nil {
		if err := applyValued(opts, "--sub-test", *fo.Subtest); err != nil {
			return err
		}
	}
	if fo.SleepTimeMS != nil {
		if err := opts.SetSleepTimeMS(*fo.SleepTimeMS); err != nil {
			return err
		}
	}
	if fo.BatchMode != nil {
		opts.SetBatchMode(*fo.BatchMode)
	}
	if fo.ShowProgress != nil {
		opts.SetShowProgress(*fo.ShowProgress)
	}
	if fo.Verbose != nil {
		opts.SetVerbose(*fo.Verbose)
	}
	if fo.ShowValues != nil {
		opts.SetShowValues(*fo.ShowValues)
	}
	if fo.ShowSteps != nil {
		opts.SetShowStepNumbers(*fo.ShowSteps)
	}
	if fo.StopOnError != nil {
		opts.SetStopOnError(*fo.StopOnError)
	}
	if fo.Interactive != nil {
		opts.SetInteractive(*fo.Interactive)
	}
	if fo.Beeps != nil {
		opts.SetBeepPrompt(*fo.Beeps)
	}
	if fo.Summarize != nil {
		opts.SetSummarize(*fo.Summarize)
	}
	if fo.CasePause != nil {
		opts.SetCasePause(*fo.CasePause)
	}
	if fo.NeedSubtests != nil {
		opts.SetNeedSubtests(*fo.NeedSubtests)
	}
	if fo.ForceFailure != nil {
		opts.SetForceFailure(*fo.ForceFailure)
	}
	if fo.Simulated != nil {
		opts.SetSimulated(*fo.Simulated)
	}
	if fo.ResponseBefore != nil && len(*fo.ResponseBefore) == 1 {
		if err := opts.SetResponseBefore((*fo.ResponseBefore)[0]); err != nil {
			return err
		}
	}
	if fo.ResponseAfter != nil && len(*fo.ResponseAfter) == 1 {
		if err := opts.SetResponseAfter((*fo.ResponseAfter)[0]); err != nil {
			return err
		}
	}
	return nil
}
