// Package exporter implements the stdout span exporter (C1): it
// serializes a batch of finished spans into one OTLP/protobuf message,
// gzips it, base64-encodes it, wraps it in the envelope, and writes
// exactly one line to its configured Sink.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/protobuf/proto"

	"github.com/fidde/otlp-span-pipeline/internal/config"
	ienvelope "github.com/fidde/otlp-span-pipeline/internal/envelope"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// Version is the producer identifier + semver written into every
// envelope's version field.
const Version = "otlp-stdout-span-exporter-go/0.1.0"

// Exporter implements go.opentelemetry.io/otel/sdk/trace.SpanExporter,
// the same interface elastic-apm-tools' tracegen package implements for
// its loggingExporter (ExportSpans(ctx, []sdktrace.ReadOnlySpan) error).
type Exporter struct {
	sink     Sink
	opts     config.ExporterOptions
	endpoint string
}

// New builds an Exporter. endpoint is the nominal OTLP URL recorded in
// every envelope (informational only; this exporter never dials it).
func New(sink Sink, opts config.ExporterOptions, endpoint string) *Exporter {
	return &Exporter{sink: sink, opts: opts, endpoint: endpoint}
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

// ExportSpans serializes spans into exactly one envelope line. An empty
// batch is a no-op on stdout; on a named pipe it opens-then-closes the
// pipe to propagate EOF, per spec.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		if e.sink.IsPipe() {
			return e.sink.TouchPipe()
		}
		return nil
	}

	req := buildRequest(spans)
	raw, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("exporter: marshaling request: %w", err)
	}

	payload := models.TelemetryPayload{
		Payload:  raw,
		Source:   e.opts.ServiceName,
		Endpoint: e.endpoint,
	}

	env, err := ienvelope.Encode(payload, e.opts.CompressionLevel, e.opts.Level)
	if err != nil {
		return fmt.Errorf("exporter: encoding envelope: %w", err)
	}
	env.Version = Version
	if len(e.opts.Headers) > 0 {
		env.Headers = e.opts.Headers
	}

	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("exporter: marshaling envelope JSON: %w", err)
	}
	line = append(line, '\n')

	return e.sink.WriteLine(line)
}

// Shutdown is a no-op: every write is already synchronous.
func (e *Exporter) Shutdown(ctx context.Context) error { return nil }

// ForceFlush is a no-op for the same reason.
func (e *Exporter) ForceFlush(ctx context.Context) error { return nil }
