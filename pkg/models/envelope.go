// Package models defines the shared wire and in-memory data types passed
// between the exporter, codec, compactor, assembler, and harness.
package models

// Envelope is the single-line JSON record written to stdout or a named
// pipe by the exporter, and read back by the assembler's log ingestion.
//
// content-type and content-encoding are always top-level fields; they
// never appear inside Headers.
type Envelope struct {
	Version         string            `json:"version"`
	Source          string            `json:"source"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method"`
	ContentType     string            `json:"content-type"`
	ContentEncoding string            `json:"content-encoding,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Payload         string            `json:"payload"`
	Base64          bool              `json:"base64,omitempty"`
	Level           string            `json:"level,omitempty"`
}

const (
	ContentTypeProtobuf = "application/x-protobuf"
	ContentTypeJSON     = "application/json"
	ContentEncodingGzip = "gzip"
)

// TelemetryPayload is the canonical in-memory form of one OTLP batch:
// uncompressed protobuf bytes of an ExportTraceServiceRequest, plus the
// source and endpoint the envelope carried it under.
type TelemetryPayload struct {
	Payload  []byte
	Source   string
	Endpoint string
}
