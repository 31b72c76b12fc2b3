// Package forwarder compacts a flushed trace's payloads into one OTLP
// request and POSTs it to an outbound OTLP/HTTP collector, grounded on
// internal/receiver/http.go's use of net/http as the transport and on
// its gzip-body handling, run here in the outbound direction instead of
// inbound.
package forwarder

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fidde/otlp-span-pipeline/internal/compactor"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

const (
	contentTypeHeader     = "Content-Type"
	contentEncodingHeader = "Content-Encoding"
)

// Forwarder POSTs compacted traces to an OTLP/HTTP endpoint.
type Forwarder struct {
	client   *http.Client
	endpoint string
	headers  map[string]string
	logger   *slog.Logger
}

// New builds a Forwarder. endpoint is the operator-configured base URL;
// ResolveURL below applies the /v1/traces join rule.
func New(client *http.Client, endpoint string, headers map[string]string, logger *slog.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{client: client, endpoint: endpoint, headers: headers, logger: logger}
}

// ResolveURL applies the base-URL join rule: /v1/traces is appended iff
// the configured URL has an empty or "/" path; otherwise it is used
// verbatim. Grounded in Testable Property E7.
func ResolveURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("forwarder: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = strings.TrimRight(u.Path, "/") + "/v1/traces"
	}
	return u.String(), nil
}

// Forward compacts payloads via the Compactor and POSTs the result.
// Non-2xx responses and transport errors are returned to the caller
// (the assembler's Dispatcher logs them as warnings and does not
// retry), per spec's fire-and-forget forwarding rule.
func (f *Forwarder) Forward(ctx context.Context, payloads []models.TelemetryPayload) error {
	merged, err := compactor.Compact(f.logger, payloads)
	if err != nil {
		return fmt.Errorf("forwarder: compacting batch: %w", err)
	}

	compressed, err := gzipBytes(merged.Payload)
	if err != nil {
		return fmt.Errorf("forwarder: gzipping compacted payload: %w", err)
	}

	target, err := ResolveURL(f.endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("forwarder: building request: %w", err)
	}
	req.Header.Set(contentTypeHeader, models.ContentTypeProtobuf)
	req.Header.Set(contentEncodingHeader, models.ContentEncodingGzip)
	req.ContentLength = int64(len(compressed))
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forwarder: POST %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("forwarder: POST %s: unexpected status %s", target, strconv.Itoa(resp.StatusCode))
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
