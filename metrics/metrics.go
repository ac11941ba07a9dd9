// Package metrics exposes prometheus instrumentation for battery runs.
package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "battery"

	ResultPass = "pass"
	ResultFail = "fail"
	ResultSkip = "skip"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed test cases",
	}, []string{
		"battery_name",
		"run_id",
		"group",
		"result",
	})

	subtestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "subtests_total",
		Help:      "Count of entered sub-tests",
	}, []string{
		"battery_name",
		"run_id",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of battery runs",
	}, []string{
		"battery_name",
		"run_id",
		"result",
	})

	runTestsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_passed",
		Help:      "Number of passed test cases per run",
	}, []string{
		"battery_name",
		"run_id",
	})

	runTestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_failed",
		Help:      "Number of failed test cases per run",
	}, []string{
		"battery_name",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of battery runs in seconds",
	}, []string{
		"battery_name",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTest counts one executed test case.
func RecordTest(battery, runID string, group int, result string) {
	if !isValidResult(result) {
		log.Error("RecordTest - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"battery", battery,
			"run_id", runID,
			"group", group,
			"result", result)
	}
	testsTotal.WithLabelValues(battery, runID, fmt.Sprintf("%d", group), result).Inc()
}

// RecordSubtests counts the sub-tests a completed test case entered.
func RecordSubtests(battery, runID string, count int) {
	if count <= 0 {
		return
	}
	subtestsTotal.WithLabelValues(battery, runID).Add(float64(count))
}

// RecordRun publishes the aggregate outcome of a battery run.
func RecordRun(
	battery string,
	runID string,
	result string,
	passed int,
	failed int,
	duration time.Duration,
) {
	runResults.WithLabelValues(battery, runID, result).Set(1)
	runTestsPassed.WithLabelValues(battery, runID).Add(float64(passed))
	runTestsFailed.WithLabelValues(battery, runID).Add(float64(failed))
	runDuration.WithLabelValues(battery, runID).Set(duration.Seconds())
}

func isValidResult(result string) bool {
	return result == ResultPass || result == ResultFail || result == ResultSkip
}
