package assembler

import (
	"testing"
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

func TestFlushByIdleTimeout(t *testing.T) {
	policy := Policy{IdleTimeout: 500 * time.Millisecond, TraceTimeout: 10 * time.Second}
	b := NewBuffer(policy)

	t0 := time.Unix(0, 0)
	b.Add("T", models.TelemetryPayload{Source: "first"}, true, t0)
	b.Add("T", models.TelemetryPayload{Source: "second"}, false, t0.Add(100*time.Millisecond))

	if due := b.DueForFlush(t0.Add(400 * time.Millisecond)); len(due) != 0 {
		t.Fatalf("expected no flush before idle timeout elapses, got %v", due)
	}

	due := b.DueForFlush(t0.Add(700 * time.Millisecond))
	if len(due) != 1 {
		t.Fatalf("expected exactly one flush at t=700ms, got %d", len(due))
	}
	f := due[0]
	if f.TraceID != "T" || !f.SawRoot {
		t.Fatalf("expected flush of T with saw_root=true, got %+v", f)
	}
	if len(f.Payloads) != 2 || f.Payloads[0].Source != "first" || f.Payloads[1].Source != "second" {
		t.Fatalf("expected both payloads in arrival order, got %+v", f.Payloads)
	}
	if b.Len() != 0 {
		t.Fatalf("expected bucket removed after flush, got %d remaining", b.Len())
	}
}

func TestFlushByHardTimeoutWithoutRoot(t *testing.T) {
	policy := Policy{IdleTimeout: 500 * time.Millisecond, TraceTimeout: 3 * time.Second}
	b := NewBuffer(policy)

	t0 := time.Unix(0, 0)
	b.Add("U", models.TelemetryPayload{Source: "only"}, false, t0)

	if due := b.DueForFlush(t0.Add(2 * time.Second)); len(due) != 0 {
		t.Fatalf("expected no flush before hard timeout elapses, got %v", due)
	}

	due := b.DueForFlush(t0.Add(3100 * time.Millisecond))
	if len(due) != 1 {
		t.Fatalf("expected exactly one flush once hard timeout is exceeded, got %d", len(due))
	}
	if due[0].SawRoot {
		t.Fatalf("expected saw_root=false since no root span ever arrived")
	}
}

func TestFlushNeverFiresWhileNeitherConditionHolds(t *testing.T) {
	policy := DefaultPolicy()
	b := NewBuffer(policy)

	t0 := time.Unix(0, 0)
	b.Add("V", models.TelemetryPayload{}, true, t0)

	if due := b.DueForFlush(t0.Add(100 * time.Millisecond)); len(due) != 0 {
		t.Fatalf("expected no premature flush, got %v", due)
	}
	if b.Len() != 1 {
		t.Fatalf("expected bucket V to remain buffered, got %d", b.Len())
	}
}

func TestLateArrivalAfterFlushStartsFreshBucket(t *testing.T) {
	policy := Policy{IdleTimeout: 500 * time.Millisecond, TraceTimeout: 10 * time.Second}
	b := NewBuffer(policy)

	t0 := time.Unix(0, 0)
	b.Add("T", models.TelemetryPayload{Source: "first"}, true, t0)
	due := b.DueForFlush(t0.Add(1 * time.Second))
	if len(due) != 1 {
		t.Fatalf("expected T to flush, got %d", len(due))
	}

	b.Add("T", models.TelemetryPayload{Source: "late"}, false, t0.Add(2*time.Second))
	if b.Len() != 1 {
		t.Fatalf("expected a fresh bucket for the late arrival, got %d buckets", b.Len())
	}

	// The late bucket has no root, so only the 10s hard timeout (counted
	// from its own first arrival at t=2s) can flush it.
	due2 := b.DueForFlush(t0.Add(12100 * time.Millisecond))
	if len(due2) != 1 || due2[0].SawRoot {
		t.Fatalf("expected the new T bucket to flush independently with saw_root=false, got %+v", due2)
	}
}

func TestFlushAllIgnoresPolicy(t *testing.T) {
	b := NewBuffer(DefaultPolicy())
	b.Add("A", models.TelemetryPayload{}, false, time.Unix(0, 0))
	b.Add("B", models.TelemetryPayload{}, true, time.Unix(0, 0))

	all := b.FlushAll()
	if len(all) != 2 {
		t.Fatalf("expected FlushAll to drain every bucket unconditionally, got %d", len(all))
	}
	if b.Len() != 0 {
		t.Fatalf("expected buffer empty after FlushAll, got %d remaining", b.Len())
	}
}
