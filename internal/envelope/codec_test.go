package envelope

import (
	"encoding/json"
	"testing"

	"github.com/fidde/otlp-span-pipeline/internal/otlperr"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"
)

func buildRequest(serviceName string) *coltracepb.ExportTraceServiceRequest {
	return &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{
						{
							Key:   "service.name",
							Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: serviceName}},
						},
					},
				},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							{Name: "handler", TraceId: []byte{1, 2, 3, 4}, SpanId: []byte{5, 6}},
						},
					},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	req := buildRequest("test-service")
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	payload := models.TelemetryPayload{Payload: raw, Source: "src", Endpoint: "https://collector.example.com"}
	env, err := Encode(payload, 6, "info")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	env.Version = "otlp-stdout-span-exporter/0.1.0"

	line, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	decoded, skipped, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if skipped {
		t.Fatalf("expected not skipped")
	}

	var got coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(decoded.Payload, &got); err != nil {
		t.Fatalf("unmarshal decoded payload: %v", err)
	}

	if !proto.Equal(&got, req) {
		t.Fatalf("round trip did not preserve request: got %v, want %v", &got, req)
	}
	if len(got.ResourceSpans) != 1 {
		t.Fatalf("expected exactly one resource_span, got %d", len(got.ResourceSpans))
	}
	firstAttr := got.ResourceSpans[0].Resource.Attributes[0]
	if firstAttr.Key != "service.name" || firstAttr.Value.GetStringValue() != "test-service" {
		t.Fatalf("unexpected first resource attribute: %v", firstAttr)
	}
}

func TestDecodeSkipsEmptyVersionOrPayload(t *testing.T) {
	line, _ := json.Marshal(models.Envelope{Version: "", Payload: "anything"})
	_, skipped, err := Decode(line)
	if err != nil || !skipped {
		t.Fatalf("expected silent skip for empty version, got skipped=%v err=%v", skipped, err)
	}

	line, _ = json.Marshal(models.Envelope{Version: "v1", Payload: ""})
	_, skipped, err = Decode(line)
	if err != nil || !skipped {
		t.Fatalf("expected silent skip for empty payload, got skipped=%v err=%v", skipped, err)
	}
}

func TestDecodeRejectsInvalidBase64(t *testing.T) {
	line, _ := json.Marshal(models.Envelope{
		Version: "v1",
		Payload: "!!!not-base64!!!",
		Base64:  true,
	})

	_, skipped, err := Decode(line)
	if skipped {
		t.Fatalf("malformed base64 must not be treated as a silent skip")
	}
	if err == nil {
		t.Fatalf("expected an error")
	}
	var kindErr *otlperr.Error
	if !asErr(err, &kindErr) || kindErr.Kind != otlperr.KindEnvelopeParse {
		t.Fatalf("expected KindEnvelopeParse, got %v", err)
	}
}

func asErr(err error, target **otlperr.Error) bool {
	e, ok := err.(*otlperr.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
