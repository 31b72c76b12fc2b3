// Package assembler implements the live-trace assembler (C4): it reads
// decoded payloads off a bounded channel, buckets them by trace_id, and
// flushes each bucket once a flush condition fires, grounded on
// internal/storage/clickhouse/buffer.go's BatchBuffer — the same
// map+ticker shape (without its mutex, since only the run loop touches
// the map), generalized from "batch by row count" to
// "bucket by trace_id with idle/hard-timeout conditions" since spans,
// unlike rows, never accumulate past a bound worth batch-sizing on.
package assembler

import (
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// Defaults for the per-trace flush policy. TRACE_TIMEOUT has no single
// correct value in the spec; 3s is chosen here as comfortably larger
// than IDLE_TIMEOUT while still keeping a stuck (rootless) trace's
// buffer lifetime in the "few seconds" range the spec calls for.
const (
	DefaultIdleTimeout  = 500 * time.Millisecond
	DefaultTraceTimeout = 3 * time.Second
	tickInterval        = 1 * time.Second
)

// bucket is the per-trace_id buffer state, grounded on spec's
// TraceBufferState: an ordered payload sequence plus the bookkeeping
// needed to decide when to flush.
type bucket struct {
	payloads  []models.TelemetryPayload
	sawRoot   bool
	firstSeen time.Time
	lastSeen  time.Time
}

// Policy is the assembler's configurable flush thresholds.
type Policy struct {
	IdleTimeout  time.Duration
	TraceTimeout time.Duration
}

// DefaultPolicy returns the spec's documented defaults.
func DefaultPolicy() Policy {
	return Policy{IdleTimeout: DefaultIdleTimeout, TraceTimeout: DefaultTraceTimeout}
}

// Buffer is the assembler's per-trace_id bucket map. It is owned
// exclusively by one goroutine (the assembler run loop) and carries no
// locking, per spec's "not shared across tasks" design note.
type Buffer struct {
	policy  Policy
	buckets map[string]*bucket
}

// NewBuffer constructs an empty Buffer under the given policy.
func NewBuffer(policy Policy) *Buffer {
	return &Buffer{policy: policy, buckets: make(map[string]*bucket)}
}

// Add records one decoded payload under traceID, creating a fresh
// bucket if this is the first payload seen for that id. hasRoot reports
// whether this particular payload itself carries a root span (a span
// with an empty parent_span_id — see extractTraceInfo and hasParent in
// traces.go).
func (b *Buffer) Add(traceID string, payload models.TelemetryPayload, hasRoot bool, now time.Time) {
	bk, ok := b.buckets[traceID]
	if !ok {
		bk = &bucket{firstSeen: now}
		b.buckets[traceID] = bk
	}
	bk.payloads = append(bk.payloads, payload)
	bk.lastSeen = now
	if hasRoot {
		bk.sawRoot = true
	}
}

// Flushed is one trace bucket ready to be handed to sinks.
type Flushed struct {
	TraceID  string
	Payloads []models.TelemetryPayload
	SawRoot  bool
}

// DueForFlush removes and returns every bucket whose flush condition
// holds at now: either (a) a root span arrived and it has been idle
// past IdleTimeout, or (b) the bucket's age exceeds TraceTimeout
// regardless of root arrival. Order among the returned buckets is
// unspecified; payload order within each bucket is preserved.
func (b *Buffer) DueForFlush(now time.Time) []Flushed {
	var due []Flushed
	for traceID, bk := range b.buckets {
		idleExceeded := bk.sawRoot && now.Sub(bk.lastSeen) > b.policy.IdleTimeout
		hardExceeded := now.Sub(bk.firstSeen) > b.policy.TraceTimeout
		if !idleExceeded && !hardExceeded {
			continue
		}
		due = append(due, Flushed{TraceID: traceID, Payloads: bk.payloads, SawRoot: bk.sawRoot})
		delete(b.buckets, traceID)
	}
	return due
}

// FlushAll removes and returns every remaining bucket unconditionally,
// used for the single final flush pass on cancellation.
func (b *Buffer) FlushAll() []Flushed {
	all := make([]Flushed, 0, len(b.buckets))
	for traceID, bk := range b.buckets {
		all = append(all, Flushed{TraceID: traceID, Payloads: bk.payloads, SawRoot: bk.sawRoot})
		delete(b.buckets, traceID)
	}
	return all
}

// Len reports the number of in-flight trace buckets, a useful
// observability metric per spec's size-monitoring design note.
func (b *Buffer) Len() int { return len(b.buckets) }
