package assembler

import (
	"encoding/hex"
	"fmt"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/proto"
)

// traceInfo is what the assembler needs from a decoded payload before it
// can bucket it: the first span's trace_id, and whether any span in the
// payload is a root span (an empty parent_span_id), grounded on
// internal/analyzer/traces.go's span-walking loop over
// resource_spans/scope_spans/spans, generalized from span-name indexing
// to per-trace_id root detection.
type traceInfo struct {
	traceIDs map[string]bool // at most one entry: first span's trace_id (hex) -> payload carries a root span
}

// extractTraceInfo decodes payload.Payload as an ExportTraceServiceRequest
// and reports the first span's trace_id (the fingerprint the whole
// payload is bucketed under) and whether any span in the payload is a
// root span.
func extractTraceInfo(raw []byte) (traceInfo, error) {
	var req coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(raw, &req); err != nil {
		return traceInfo{}, fmt.Errorf("assembler: decoding payload for bucketing: %w", err)
	}

	info := traceInfo{traceIDs: make(map[string]bool)}
	firstID := ""
	sawRoot := false
	for _, rs := range req.ResourceSpans {
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				if firstID == "" {
					firstID = hex.EncodeToString(span.TraceId)
				}
				if !hasParent(span.ParentSpanId) {
					sawRoot = true
				}
			}
		}
	}
	if firstID != "" {
		info.traceIDs[firstID] = sawRoot
	}
	return info, nil
}

// hasParent reports whether a parent_span_id is present and non-zero,
// mirroring the teacher's len(...) > 0 root-detection check generalized
// to also reject an all-zero span id.
func hasParent(parentSpanID []byte) bool {
	if len(parentSpanID) == 0 {
		return false
	}
	for _, b := range parentSpanID {
		if b != 0 {
			return true
		}
	}
	return false
}
