// Package metrics exposes the matcher's Prometheus instrumentation:
// package-level collectors plus Record* helper functions, in the same
// idiom used across the rest of the service's instrumented packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchRunsTotal counts orchestrator runs by outcome (the orchestrator
	// records "ok" and "index_error").
	MatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_runs_total",
		Help: "Total number of match runs, labeled by outcome.",
	}, []string{"outcome"})

	// CandidatesRetrieved records the number of candidates C4 returns per run.
	CandidatesRetrieved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matcher_candidates_retrieved",
		Help:    "Number of candidates retrieved per match run.",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50},
	})

	// ScoringErrorsTotal counts scoring failures by reason (the orchestrator
	// records "all_failed" once for a run in which no candidate was scored).
	ScoringErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_scoring_errors_total",
		Help: "Total number of candidate scoring errors, labeled by reason.",
	}, []string{"reason"})

	// PersistedRowsTotal counts rows successfully upserted by the persister.
	PersistedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matcher_persisted_rows_total",
		Help: "Total number of ranked-result rows persisted.",
	})

	// StageDuration records wall-clock time spent in each orchestrator stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matcher_stage_duration_seconds",
		Help:    "Duration of each orchestrator stage, labeled by stage name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// LLMCallsTotal counts outbound LLM calls by provider and purpose.
	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matcher_llm_calls_total",
		Help: "Total number of LLM calls, labeled by provider and purpose.",
	}, []string{"provider", "purpose"})

	// CandidateScoringInFlight tracks the bounded worker pool's current
	// concurrency.
	CandidateScoringInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matcher_candidate_scoring_in_flight",
		Help: "Number of candidate scoring calls currently in flight.",
	})
)

// RecordRun increments MatchRunsTotal for the given outcome.
func RecordRun(outcome string) {
	MatchRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordCandidatesRetrieved observes the number of candidates retrieved.
func RecordCandidatesRetrieved(n int) {
	CandidatesRetrieved.Observe(float64(n))
}

// RecordScoringError increments ScoringErrorsTotal for the given reason.
func RecordScoringError(reason string) {
	ScoringErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordPersistedRows increments PersistedRowsTotal by n.
func RecordPersistedRows(n int) {
	PersistedRowsTotal.Add(float64(n))
}

// RecordStageDuration observes d against the named stage.
func RecordStageDuration(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordLLMCall increments LLMCallsTotal for the given provider/purpose.
func RecordLLMCall(provider, purpose string) {
	LLMCallsTotal.WithLabelValues(provider, purpose).Inc()
}

// IncrementCandidateScoring increments CandidateScoringInFlight.
func IncrementCandidateScoring() {
	CandidateScoringInFlight.Inc()
}

// DecrementCandidateScoring decrements CandidateScoringInFlight.
func DecrementCandidateScoring() {
	CandidateScoringInFlight.Dec()
}

// RunTimer measures elapsed wall-clock time for a single match run.
type RunTimer struct {
	start time.Time
}

// NewRunTimer starts a timer.
func NewRunTimer() *RunTimer {
	return &RunTimer{start: time.Now()}
}

// Elapsed returns the time elapsed since the timer started.
func (t *RunTimer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordStage observes the timer's elapsed duration against stage and
// resets the start time, so consecutive stages can be timed back to back.
func (t *RunTimer) RecordStage(stage string) {
	RecordStageDuration(stage, t.Elapsed())
	t.start = time.Now()
}
