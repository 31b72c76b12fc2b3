// Package report defines the strongly-typed shape handed off to the
// (external, out-of-core) stats computer and HTML/Jekyll/markdown
// renderers. Nothing in this package renders output; it exists so
// internal/harness has a concrete, JSON-serializable return type.
package report

import (
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// InvocationOutcome is one invocation's result: either populated metrics
// or an error (transport failure or a reported FunctionError).
type InvocationOutcome struct {
	Metrics       models.InvocationMetrics `json:"metrics"`
	FunctionError string                   `json:"function_error,omitempty"`
	Err           error                    `json:"-"`
}

// Failed reports whether this outcome should be excluded from latency
// statistics. Per DESIGN.md's Open Question decision: both transport
// errors and reported FunctionErrors count as failures.
func (o InvocationOutcome) Failed() bool {
	return o.Err != nil || o.FunctionError != ""
}

// BenchmarkReport is persisted to {output_dir}/{memory}mb/{function}.json,
// where {memory} is MemorySizeMb; when MemorySizeMb is nil (no memory
// override) the directory segment is "default" instead.
type BenchmarkReport struct {
	FunctionName      string              `json:"function_name"`
	MemorySizeMb      *int32              `json:"memory_size_mb,omitempty"`
	StartedAt         time.Time           `json:"started_at"`
	FinishedAt        time.Time           `json:"finished_at"`
	ColdInvocations   []InvocationOutcome `json:"cold"`
	WarmInvocations   []InvocationOutcome `json:"warm"`
	ClientDurationsMs []float64           `json:"client_durations_ms,omitempty"`
}

// SuccessRate returns the fraction of invocations (cold+warm) that
// neither errored nor reported a FunctionError, in [0, 1]. FunctionError
// invocations are counted as failures and excluded from latency
// statistics, per the Open Question decision recorded in DESIGN.md.
func (r BenchmarkReport) SuccessRate() float64 {
	all := append(append([]InvocationOutcome{}, r.ColdInvocations...), r.WarmInvocations...)
	if len(all) == 0 {
		return 1
	}
	succeeded := 0
	for _, o := range all {
		if !o.Failed() {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(all))
}

// SuccessfulLatencies returns the DurationMs of every non-failed
// invocation across both cold and warm samples, the input a stats
// computer would reduce into {min, max, mean, p50, p95}.
func (r BenchmarkReport) SuccessfulLatencies() []float64 {
	var out []float64
	for _, o := range append(append([]InvocationOutcome{}, r.ColdInvocations...), r.WarmInvocations...) {
		if !o.Failed() {
			out = append(out, o.Metrics.DurationMs)
		}
	}
	return out
}
