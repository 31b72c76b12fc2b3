// Package compactor merges multiple TelemetryPayloads sharing an endpoint
// into one ExportTraceServiceRequest by concatenating resource_spans,
// grounded on internal/analyzer/traces.go's iteration over
// req.ResourceSpans / scopeSpans.Spans — the compactor walks the same
// proto shape but concatenates instead of aggregating into per-name
// metadata.
package compactor

import (
	"fmt"
	"log/slog"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/proto"

	"github.com/fidde/otlp-span-pipeline/internal/otlperr"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// Compact merges a non-empty sequence of TelemetryPayloads into one
// canonical (uncompressed protobuf) TelemetryPayload. A single-element
// input skips the merge step; Compact still re-marshals the proto so the
// output is always a freshly-encoded, self-consistent request regardless
// of input count. Compact does not gzip its result; the caller compresses
// it before it crosses the wire again (the forwarder gzips it before
// POSTing).
// Individual decode failures are logged and skipped, not returned: every
// span present in any input that decodes successfully is present in the
// output, in input order.
func Compact(logger *slog.Logger, payloads []models.TelemetryPayload) (models.TelemetryPayload, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(payloads) == 0 {
		return models.TelemetryPayload{}, fmt.Errorf("compact: empty payload sequence")
	}

	merged := &coltracepb.ExportTraceServiceRequest{}
	decodedAny := false

	for i, p := range payloads {
		var req coltracepb.ExportTraceServiceRequest
		if err := proto.Unmarshal(p.Payload, &req); err != nil {
			logger.Warn("compactor: skipping payload that failed to decode",
				"index", i,
				"error", err,
			)
			continue
		}
		merged.ResourceSpans = append(merged.ResourceSpans, req.ResourceSpans...)
		decodedAny = true
	}

	if !decodedAny {
		return models.TelemetryPayload{}, otlperr.New(otlperr.KindProtobufInvalid, fmt.Errorf("compact: no payload in the batch decoded successfully"))
	}

	raw, err := proto.Marshal(merged)
	if err != nil {
		return models.TelemetryPayload{}, fmt.Errorf("compact: re-encoding merged request: %w", err)
	}

	first := payloads[0]
	return models.TelemetryPayload{
		Payload:  raw,
		Source:   first.Source,
		Endpoint: first.Endpoint,
	}, nil
}
