package models

import "time"

// RuntimeDoneExtras holds the optional sub-spans and byte counters that
// are only present when a platform.runtimeDone tail-log line was observed
// for an invocation.
type RuntimeDoneExtras struct {
	ResponseLatencyMs float64
	ResponseDurationMs float64
	RuntimeOverheadMs  float64
	ProducedBytes      int64
	ProducedBytesMs    float64
}

// InvocationMetrics is the metric set extracted from one Lambda
// invocation's tail logs (platform.report plus, when present,
// platform.runtimeDone).
//
// Invariants: InitDurationMs != nil iff this was a cold start;
// TotalColdStartDurationMs, when set, equals *InitDurationMs + DurationMs;
// DurationMs >= ExtensionOverheadMs.
type InvocationMetrics struct {
	Timestamp                time.Time
	ClientDurationMs         float64
	InitDurationMs           *float64
	DurationMs               float64
	ExtensionOverheadMs      float64
	TotalColdStartDurationMs *float64
	BilledDurationMs         float64
	MemorySizeMb             int64
	MaxMemoryUsedMb          int64
	RuntimeDone              *RuntimeDoneExtras
}

// IsColdStart reports whether this invocation incurred an init_duration.
func (m InvocationMetrics) IsColdStart() bool {
	return m.InitDurationMs != nil
}

// OriginalConfig is the pre-mutation snapshot of a Lambda function's
// configuration, captured before the harness applies a memory override or
// merges extra environment variables, and restored unconditionally on
// every termination path (success, error, or interrupt).
type OriginalConfig struct {
	FunctionName string
	MemorySizeMb int32
	Environment  map[string]string
}
