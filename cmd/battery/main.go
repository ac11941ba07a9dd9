package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"golang.org/x/mod/semver"

	"github.com/batterykit/battery"
	"github.com/batterykit/battery/exitcodes"
	"github.com/batterykit/battery/flags"
	"github.com/batterykit/battery/options"
	"github.com/batterykit/battery/selftest"
	"github.com/batterykit/battery/service"
)

var (
	Version   = "v1.0.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the whole application; it returns the process exit code so main's
// os.Exit never skips a deferred shutdown.
func run(args []string) int {
	app := newApp()
	opts := options.New()

	// Silence is prescanned inside Apply, but the logger has to exist before
	// Apply can report a parse error, so prescan here too.
	flags.PrescanSilent(opts, args)
	logger := newLogger(opts)
	log.SetDefault(logger)

	outcome, err := flags.Apply(opts, args)
	if err != nil {
		logger.Error("Invalid command line", "err", err)
		return exitcodes.RuntimeErr
	}
	switch outcome {
	case flags.OutcomeVersion:
		fmt.Println(app.Version)
		return exitcodes.Success
	case flags.OutcomeHelp:
		_ = cli.ShowAppHelp(cli.NewContext(app, nil, nil))
		fmt.Println()
		fmt.Println(selftest.AdditionalHelp)
		return exitcodes.Success
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		logger.Warn("Telemetry disabled", "err", err)
	} else {
		defer otelShutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Serve() {
		svc := service.New(service.Config{Log: logger})
		svc.Start(ctx)
		defer svc.Shutdown()
	}

	harness, err := battery.New(&battery.Config{
		Log:            logger,
		Options:        opts,
		Name:           app.Name,
		Version:        app.Version,
		LogDir:         os.Getenv(flags.EnvVarPrefix + "_LOG_DIR"),
		AdditionalHelp: selftest.AdditionalHelp,
	}, selftest.LoadAll)
	if err != nil {
		logger.Error("Failed to create harness", "err", err)
		return exitcodes.RuntimeErr
	}

	if err := harness.Run(ctx); err != nil {
		switch {
		case battery.IsTestFailureError(err):
			if !opts.HideErrors() {
				logger.Error("Battery failed", "err", err)
			}
			return exitcodes.TestFailure
		case battery.IsRuntimeError(err):
			logger.Error("Runtime error occurred", "err", err)
			return exitcodes.RuntimeErr
		default:
			logger.Error("Battery failed", "err", err)
			return exitcodes.TestFailure
		}
	}
	return exitcodes.Success
}

// newApp declares the application surface. It exists for the help and
// version text; parsing is the ordered walk in the flags package.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "battery"
	app.Usage = "Self-testing unit-test battery runner"
	app.Description = "battery runs its own framework test suite: options, status and runner groups"
	app.Version = formatVersion()
	app.Flags = flags.Flags
	return app
}

// newLogger builds the terminal logger honoring the silence flags: --silent
// keeps errors, --hide-errors keeps only criticals.
func newLogger(opts *options.Options) log.Logger {
	level := log.LevelInfo
	if opts.Silent() {
		level = log.LevelError
	}
	if opts.HideErrors() {
		level = log.LevelCrit
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true))
}

func formatVersion() string {
	v := Version
	if semver.IsValid(v) {
		v = semver.Canonical(v)
	}
	if GitCommit != "" {
		v += "-" + GitCommit
	}
	if GitDate != "" {
		v += "-" + GitDate
	}
	return v
}
