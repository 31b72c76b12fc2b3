package console

import (
	"encoding/hex"
	"sort"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"
)

// renderSpan is the flattened, display-ready view of one OTLP span.
type renderSpan struct {
	spanID       string
	parentSpanID string
	serviceName  string
	name         string
	kind         tracepb.Span_SpanKind
	start        time.Time
	end          time.Time
	isError      bool
	attributes   []*commonpb.KeyValue
	events       []*tracepb.Span_Event
	children     []*renderSpan
}

func (s *renderSpan) duration() time.Duration { return s.end.Sub(s.start) }

// buildTrees decodes every payload's protobuf body and assembles a
// forest of parent-child span trees, keyed by span_id — the same
// map-lookup-by-id idiom internal/analyzer/traces.go uses to index
// spans by name, generalized here to index by id for tree assembly
// instead of by name for metadata aggregation.
func buildTrees(payloads [][]byte) ([]*renderSpan, error) {
	byID := make(map[string]*renderSpan)
	var order []string

	for _, raw := range payloads {
		var req coltracepb.ExportTraceServiceRequest
		if err := proto.Unmarshal(raw, &req); err != nil {
			continue
		}
		for _, rs := range req.ResourceSpans {
			serviceName := serviceNameOf(rs.Resource.GetAttributes())
			for _, ss := range rs.ScopeSpans {
				for _, span := range ss.Spans {
					id := hex.EncodeToString(span.SpanId)
					if _, exists := byID[id]; exists {
						continue
					}
					rSpan := &renderSpan{
						spanID:       id,
						parentSpanID: hex.EncodeToString(span.ParentSpanId),
						serviceName:  serviceName,
						name:         span.Name,
						kind:         span.Kind,
						start:        time.Unix(0, int64(span.StartTimeUnixNano)),
						end:          time.Unix(0, int64(span.EndTimeUnixNano)),
						isError:      span.Status != nil && span.Status.Code == tracepb.Status_STATUS_CODE_ERROR,
						attributes:   span.Attributes,
						events:       span.Events,
					}
					byID[id] = rSpan
					order = append(order, id)
				}
			}
		}
	}

	var roots []*renderSpan
	for _, id := range order {
		span := byID[id]
		parent, ok := byID[span.parentSpanID]
		if !ok || span.parentSpanID == "" {
			roots = append(roots, span)
			continue
		}
		parent.children = append(parent.children, span)
	}

	for _, span := range byID {
		sort.Slice(span.children, func(i, j int) bool {
			return span.children[i].start.Before(span.children[j].start)
		})
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].start.Before(roots[j].start) })

	return roots, nil
}

func serviceNameOf(attrs []*commonpb.KeyValue) string {
	for _, a := range attrs {
		if a.Key == "service.name" {
			return a.Value.GetStringValue()
		}
	}
	return "unknown-service"
}

// flatten walks the tree depth-first, the order the tabular timeline
// renders rows in.
func flatten(roots []*renderSpan) []*renderSpan {
	var out []*renderSpan
	var walk func(*renderSpan)
	walk = func(s *renderSpan) {
		out = append(out, s)
		for _, c := range s.children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
