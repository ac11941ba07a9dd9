// Package battery ties the pieces of a unit-test battery together: a
// Harness owns the Options, fills a Registry from the caller's loaders,
// drives the Runner, renders the summary and maps the outcome onto the
// typed errors the exit-code handling understands.
package battery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/batterykit/battery/exitcodes"
	"github.com/batterykit/battery/logging"
	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/registry"
	"github.com/batterykit/battery/runner"
	"github.com/batterykit/battery/ui"
)

// listingWidth sizes the box around the summarize listing.
const listingWidth = 60

// Loader registers test functions onto a registry. A battery binary passes
// one per test group.
type Loader func(reg *registry.Registry) error

// Config for a Harness.
type Config struct {
	Log     log.Logger
	Options *options.Options
	Name    string // battery name for metrics and the summary table
	Version string

	// LogDir enables the per-run result directory when non-empty.
	LogDir string

	// AdditionalHelp is appended to the usage text.
	AdditionalHelp string
}

// Harness is a single-shot battery application: load, run, report.
type Harness struct {
	config   *Config
	registry *registry.Registry
	result   *runner.Result
	running  atomic.Bool
}

// New builds a Harness and loads the given test groups into its registry.
func New(cfg *Config, loaders ...Loader) (*Harness, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Options == nil {
		cfg.Options = options.New()
	}
	if cfg.Name == "" {
		cfg.Name = "battery"
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:            cfg.Log,
		Options:        cfg.Options,
		AdditionalHelp: cfg.AdditionalHelp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	for _, load := range loaders {
		if err := load(reg); err != nil {
			return nil, fmt.Errorf("failed to load tests: %w", err)
		}
	}

	cfg.Log.Debug("Created harness",
		"name", cfg.Name, "loaded", reg.TestCount())

	return &Harness{
		config:   cfg,
		registry: reg,
	}, nil
}

// Registry exposes the underlying registry so callers can load additional
// tests before Run.
func (h *Harness) Registry() *registry.Registry {
	if h == nil {
		return nil
	}
	return h.registry
}

// Result returns the outcome of the last Run, nil before the first.
func (h *Harness) Result() *runner.Result {
	if h == nil {
		return nil
	}
	return h.result
}

// Run executes the battery once. Setup problems return a RuntimeError;
// failing tests return a TestFailureError; a clean pass returns nil. The
// exit-code mapping in cmd relies on exactly this split.
func (h *Harness) Run(ctx context.Context) error {
	if h == nil {
		return NewRuntimeError(errors.New("harness is nil"))
	}
	if !h.running.CompareAndSwap(false, true) {
		return NewRuntimeError(errors.New("harness is already running"))
	}
	defer h.running.Store(false)

	// Panic recovery at the harness boundary only; the core signals every
	// failure through return values.
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	runID := uuid.New().String()
	opts := h.config.Options

	var fileLogger *logging.FileLogger
	if h.config.LogDir != "" {
		fl, err := logging.NewFileLogger(h.config.LogDir, runID)
		if err != nil {
			return NewRuntimeError(fmt.Errorf("failed to create file logger: %w", err))
		}
		fileLogger = fl
		h.config.Log.Info("Writing results", "dir", fl.LogDir())
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Registry:    h.registry,
		Log:         h.config.Log,
		BatteryName: h.config.Name,
		RunID:       runID,
		FileLogger:  fileLogger,
	})
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create test runner: %w", err))
	}

	listing := opts.Summarize() && !opts.Silent()
	if listing {
		fmt.Fprint(opts.Session().Out,
			ui.BuildBoxHeader("Battery Listing: "+h.config.Name, listingWidth))
	}

	result, err := testRunner.Run(ctx)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to run tests: %w", err))
	}
	h.result = result

	if listing {
		fmt.Fprint(opts.Session().Out, ui.BuildBoxFooter(listingWidth))
	}

	summary := result.Summary(h.config.Name)
	if !opts.Silent() && !opts.Summarize() {
		rendered := summary.Table()
		fmt.Fprintln(opts.Session().Out, rendered)
		if fileLogger != nil {
			if err := fileLogger.LogSummary(rendered); err != nil {
				h.config.Log.Error("Failed to write summary file", "err", err)
			}
		}
	} else if fileLogger != nil {
		if err := fileLogger.LogSummary(summary.String()); err != nil {
			h.config.Log.Error("Failed to write summary file", "err", err)
		}
	}

	if !result.Passed() {
		return NewTestFailureError(summary.String())
	}
	return nil
}
