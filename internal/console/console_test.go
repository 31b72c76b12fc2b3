package console

import (
	"bytes"
	"testing"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

func serviceResource(name string) *resourcepb.Resource {
	return &resourcepb.Resource{
		Attributes: []*commonpb.KeyValue{
			{Key: "service.name", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: name}}},
		},
	}
}

func TestColorForIsDeterministic(t *testing.T) {
	theme := ThemeDefault
	a := colorFor(theme, "checkout-service", false)
	b := colorFor(theme, "checkout-service", false)
	if a != b {
		t.Fatalf("expected the same key to always map to the same color")
	}
}

func TestColorForForcesRedOnError(t *testing.T) {
	c := colorFor(ThemeDefault, "checkout-service", true)
	if c != ErrorColor {
		t.Fatalf("expected error spans to be forced to ErrorColor")
	}
}

func TestThemeByNameFallsBackToDefault(t *testing.T) {
	if ThemeByName("does-not-exist").Name != ThemeDefault.Name {
		t.Fatalf("expected unknown theme name to fall back to default")
	}
	if ThemeByName("ocean").Name != "ocean" {
		t.Fatalf("expected a known theme name to resolve exactly")
	}
}

func TestBuildTreesAssignsChildToParent(t *testing.T) {
	rootID := []byte{1, 1, 1, 1, 1, 1, 1, 1}
	childID := []byte{2, 2, 2, 2, 2, 2, 2, 2}
	traceID := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{{
			Resource: serviceResource("svc"),
			ScopeSpans: []*tracepb.ScopeSpans{{
				Spans: []*tracepb.Span{
					{TraceId: traceID, SpanId: rootID, Name: "root", StartTimeUnixNano: 1, EndTimeUnixNano: 100},
					{TraceId: traceID, SpanId: childID, ParentSpanId: rootID, Name: "child", StartTimeUnixNano: 10, EndTimeUnixNano: 50},
				},
			}},
		}},
	}
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	roots, err := buildTrees([][]byte{raw})
	if err != nil {
		t.Fatalf("buildTrees: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected exactly one root span, got %d", len(roots))
	}
	if len(roots[0].children) != 1 || roots[0].children[0].name != "child" {
		t.Fatalf("expected root's child to be attached, got %+v", roots[0].children)
	}
}

func TestRenderProducesOutputForASimpleTrace(t *testing.T) {
	traceID := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{{
			Resource: serviceResource("svc"),
			ScopeSpans: []*tracepb.ScopeSpans{{
				Spans: []*tracepb.Span{
					{TraceId: traceID, SpanId: []byte{1, 1, 1, 1, 1, 1, 1, 1}, Name: "handler",
						StartTimeUnixNano: uint64(time.Unix(0, 0).UnixNano()),
						EndTimeUnixNano:   uint64(time.Unix(0, 0).Add(10 * time.Millisecond).UnixNano())},
				},
			}},
		}},
	}
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var buf bytes.Buffer
	r := NewRenderer(&buf, ThemeDefault, ColorByService, "")
	r.Render("deadbeef", []models.TelemetryPayload{{Payload: raw}}, true)

	if buf.Len() == 0 {
		t.Fatalf("expected Render to write output")
	}
}

func TestTimelineWidthNeverBelowMinimum(t *testing.T) {
	if TimelineWidth() < minTimelineWidth {
		t.Fatalf("expected TimelineWidth to never fall below the spec's minimum of %d", minTimelineWidth)
	}
}
