// Package metrics exports Prometheus counters for command runs.
package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/deixis/procrun/runner"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSpawnError = "spawn_error"
	OutcomeAbandoned  = "abandoned"
)

var (
	registerOnce sync.Once

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procrun",
			Name:      "runs_total",
			Help:      "Total command runs by outcome.",
		},
		[]string{"outcome"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "procrun",
			Name:      "run_duration_seconds",
			Help:      "Time from spawn to exit in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

// Register adds the collectors to the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(runsTotal, runDuration)
	})
}

// Outcome classifies a run. A caller that stopped waiting before the
// child exited is abandoned; the child itself may still succeed.
func Outcome(res *runner.Result, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeAbandoned
	case err != nil || res == nil:
		return OutcomeSpawnError
	case res.Status.Success():
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// Record counts a run. Duration is only observed for runs that started.
func Record(res *runner.Result, err error) {
	Register()
	outcome := Outcome(res, err)
	runsTotal.WithLabelValues(outcome).Inc()
	if res != nil && err == nil {
		runDuration.WithLabelValues(outcome).Observe(res.Duration.Seconds())
	}
}
