// Package logging persists battery results to a per-run directory on disk.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/batterykit/battery/reporting"
	"github.com/batterykit/battery/status"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
	AllResultsFilename = "all.log"
	FailedDirName      = "failed"
)

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result
	Consume(st *status.Status, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger writes test results to files under baseDir/testrun-<runID>/.
// Every completed test appends to the combined log; failed tests also get
// an individual file under failed/ so an operator can find them without
// paging through the full run. All file content is ANSI-stripped.
type FileLogger struct {
	baseDir   string
	logDir    string
	failedDir string
	runID     string

	mu    sync.Mutex
	sinks []ResultSink
}

var _ ResultSink = (*FileLogger)(nil)

// NewFileLogger creates the run directory tree for runID under baseDir.
func NewFileLogger(baseDir, runID string, sinks ...ResultSink) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("logging: base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("logging: run ID is required")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(logDir, FailedDirName)
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &FileLogger{
		baseDir:   baseDir,
		logDir:    logDir,
		failedDir: failedDir,
		runID:     runID,
		sinks:     sinks,
	}, nil
}

// LogDir returns the directory this run's files are written to.
func (l *FileLogger) LogDir() string {
	if l == nil {
		return ""
	}
	return l.logDir
}

// Consume writes one completed test result. Implements ResultSink.
func (l *FileLogger) Consume(st *status.Status, runID string) error {
	if l == nil {
		return fmt.Errorf("logging: Consume on nil FileLogger")
	}
	if st == nil {
		return fmt.Errorf("logging: nil status")
	}

	line := stripansi.Strip(reporting.ResultLine(st)) + "\n"

	l.mu.Lock()
	err := appendFile(filepath.Join(l.logDir, AllResultsFilename), line)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	if !st.IsOkay() {
		detail := line +
			fmt.Sprintf("disposition: %s\nerrors: %d\nfirst failed sub-test: %d\n",
				st.Disposition(), st.ErrorCount(), st.FirstFailedSubtest())
		name := fmt.Sprintf("group-%03d-case-%03d.log", st.Group(), st.Case())
		if err := os.WriteFile(filepath.Join(l.failedDir, name), []byte(detail), 0o644); err != nil {
			return fmt.Errorf("failed to write failure detail: %w", err)
		}
	}

	for _, sink := range l.sinks {
		if err := sink.Consume(st, runID); err != nil {
			return err
		}
	}
	return nil
}

// LogSummary writes the rendered end-of-run summary, ANSI-stripped so the
// file reads cleanly outside a terminal.
func (l *FileLogger) LogSummary(rendered string) error {
	if l == nil {
		return fmt.Errorf("logging: LogSummary on nil FileLogger")
	}
	clean := stripansi.Strip(rendered)
	if !strings.HasSuffix(clean, "\n") {
		clean += "\n"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return os.WriteFile(filepath.Join(l.logDir, SummaryFilename), []byte(clean), 0o644)
}

// Complete finishes the run and forwards to the attached sinks. Implements
// ResultSink.
func (l *FileLogger) Complete(runID string) error {
	if l == nil {
		return nil
	}
	for _, sink := range l.sinks {
		if err := sink.Complete(runID); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
