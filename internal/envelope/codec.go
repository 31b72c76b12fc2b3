// Package envelope implements the bidirectional transform between the
// single-line JSON wire Envelope and the canonical in-memory
// TelemetryPayload, grounded on internal/receiver/http.go's
// gzip-then-try-protobuf-else-JSON dispatch — the same dual-format
// decode pipeline, generalized from "HTTP request body" to "envelope
// payload field".
package envelope

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fidde/otlp-span-pipeline/internal/otlperr"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Decode parses one envelope line into a TelemetryPayload. When the
// envelope has an empty version or payload field, Decode returns
// skipped=true and a nil error: the exporter silently skips such
// envelopes, so the codec must not treat them as a failure.
func Decode(line []byte) (payload models.TelemetryPayload, skipped bool, err error) {
	var env models.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return models.TelemetryPayload{}, false, otlperr.New(otlperr.KindEnvelopeParse, fmt.Errorf("invalid envelope JSON: %w", err))
	}

	if env.Version == "" || env.Payload == "" {
		return models.TelemetryPayload{}, true, nil
	}

	body := []byte(env.Payload)
	if env.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(env.Payload)
		if err != nil {
			return models.TelemetryPayload{}, false, otlperr.New(otlperr.KindEnvelopeParse, fmt.Errorf("invalid base64 payload: %w", err))
		}
		body = decoded
	}

	if env.ContentEncoding == models.ContentEncodingGzip {
		decompressed, err := gunzip(body)
		if err != nil {
			return models.TelemetryPayload{}, false, otlperr.New(otlperr.KindDecompress, fmt.Errorf("gunzip payload: %w", err))
		}
		body = decompressed
	}

	canonical, err := decodeBody(env.ContentType, body)
	if err != nil {
		return models.TelemetryPayload{}, false, err
	}

	return models.TelemetryPayload{
		Payload:  canonical,
		Source:   env.Source,
		Endpoint: env.Endpoint,
	}, false, nil
}

// decodeBody dispatches on content-type and always returns uncompressed
// protobuf bytes of a valid ExportTraceServiceRequest.
func decodeBody(contentType string, body []byte) ([]byte, error) {
	switch contentType {
	case models.ContentTypeProtobuf:
		var req coltracepb.ExportTraceServiceRequest
		if err := proto.Unmarshal(body, &req); err != nil {
			return nil, otlperr.New(otlperr.KindProtobufInvalid, fmt.Errorf("decoding protobuf body: %w", err))
		}
		return body, nil

	case models.ContentTypeJSON:
		var req coltracepb.ExportTraceServiceRequest
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if err := unmarshaler.Unmarshal(body, &req); err != nil {
			return nil, otlperr.New(otlperr.KindProtobufInvalid, fmt.Errorf("decoding JSON OTLP body: %w", err))
		}
		reencoded, err := proto.Marshal(&req)
		if err != nil {
			return nil, otlperr.New(otlperr.KindProtobufInvalid, fmt.Errorf("re-encoding JSON OTLP body as protobuf: %w", err))
		}
		return reencoded, nil

	default:
		// Unrecognized content-type: attempt protobuf decode before
		// giving up, per spec's "anything else" dispatch branch.
		var req coltracepb.ExportTraceServiceRequest
		if err := proto.Unmarshal(body, &req); err != nil {
			return nil, otlperr.New(otlperr.KindContentTypeUnsupported, fmt.Errorf("unsupported content-type %q and body is not valid protobuf: %w", contentType, err))
		}
		return body, nil
	}
}

// Encode assembles an envelope for one canonical TelemetryPayload: gzip at
// compressionLevel, base64-encode, fixed content-type/content-encoding,
// base64=true. logLevel populates the envelope's informational "level"
// field and may be empty.
func Encode(payload models.TelemetryPayload, compressionLevel int, logLevel string) (models.Envelope, error) {
	compressed, err := gzipAt(payload.Payload, compressionLevel)
	if err != nil {
		return models.Envelope{}, fmt.Errorf("gzip payload: %w", err)
	}

	return models.Envelope{
		Source:          payload.Source,
		Endpoint:        payload.Endpoint,
		Method:          "POST",
		ContentType:     models.ContentTypeProtobuf,
		ContentEncoding: models.ContentEncodingGzip,
		Payload:         base64.StdEncoding.EncodeToString(compressed),
		Base64:          true,
		Level:           logLevel,
	}, nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func gzipAt(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
