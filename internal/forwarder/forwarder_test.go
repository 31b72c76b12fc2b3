package forwarder

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

func TestResolveURLAppendsPathOnlyWhenEmptyOrRoot(t *testing.T) {
	cases := map[string]string{
		"https://otel.example.com":         "https://otel.example.com/v1/traces",
		"https://otel.example.com/":        "https://otel.example.com/v1/traces",
		"https://otel.example.com/custom":  "https://otel.example.com/custom",
	}
	for in, want := range cases {
		got, err := ResolveURL(in)
		if err != nil {
			t.Fatalf("ResolveURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func payload(t *testing.T) models.TelemetryPayload {
	t.Helper()
	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{
					{Key: "service.name", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "svc"}}},
				},
			},
		}},
	}
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return models.TelemetryPayload{Payload: raw}
}

func TestForwardPostsGzippedProtobufWithFixedHeaders(t *testing.T) {
	var gotPath, gotContentType, gotContentEncoding string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotContentEncoding = r.Header.Get("Content-Encoding")

		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("gzip.NewReader: %v", err)
			return
		}
		gotBody, _ = io.ReadAll(gz)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, map[string]string{"x-api-key": "secret"}, nil)
	if err := f.Forward(context.Background(), []models.TelemetryPayload{payload(t)}); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if gotPath != "/v1/traces" {
		t.Fatalf("expected path /v1/traces, got %q", gotPath)
	}
	if gotContentType != models.ContentTypeProtobuf || gotContentEncoding != models.ContentEncodingGzip {
		t.Fatalf("expected fixed content headers, got type=%q encoding=%q", gotContentType, gotContentEncoding)
	}

	var req coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("unmarshal forwarded body: %v", err)
	}
	if len(req.ResourceSpans) != 1 {
		t.Fatalf("expected the compacted single-payload body to round trip, got %d resource_spans", len(req.ResourceSpans))
	}
}

func TestForwardReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, nil, nil)
	if err := f.Forward(context.Background(), []models.TelemetryPayload{payload(t)}); err == nil {
		t.Fatalf("expected an error for a non-2xx response")
	}
}
