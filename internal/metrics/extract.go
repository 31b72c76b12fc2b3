// Package metrics extracts InvocationMetrics from the base64-decoded
// tail of a Lambda Invoke response's CloudWatch Logs, grounded on
// internal/receiver/http.go's line-oriented JSON decoding of a request
// body, generalized here from "one OTLP JSON body" to "many newline
// separated Lambda telemetry-API JSON records".
package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// telemetryRecord is one line of the Lambda Telemetry API's tail-log
// format: {"time":"...","type":"platform.report","record":{...}}.
type telemetryRecord struct {
	Time   string          `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

type reportRecord struct {
	Status  string `json:"status"`
	Metrics struct {
		DurationMs       float64 `json:"durationMs"`
		BilledDurationMs float64 `json:"billedDurationMs"`
		MemorySizeMB     int64   `json:"memorySizeMB"`
		MaxMemoryUsedMB  int64   `json:"maxMemoryUsedMB"`
		InitDurationMs   *float64 `json:"initDurationMs"`
	} `json:"metrics"`
	Spans []span `json:"spans"`
}

type runtimeDoneRecord struct {
	Status  string `json:"status"`
	Spans   []span `json:"spans"`
	Metrics struct {
		ProducedBytes int64   `json:"producedBytes"`
		DurationMs    float64 `json:"durationMs"`
	} `json:"metrics"`
}

type span struct {
	Name       string  `json:"name"`
	DurationMs float64 `json:"durationMs"`
}

// ExtractFromTailLog parses the last platform.report and the last
// platform.runtimeDone JSON lines out of a decoded tail log and
// populates an InvocationMetrics. clientDurationMs is the
// harness-measured wall-clock duration, folded in directly since it is
// not present in the Lambda telemetry stream itself.
func ExtractFromTailLog(tailLog []byte, clientDurationMs float64) (models.InvocationMetrics, error) {
	lines := strings.Split(strings.TrimSpace(string(tailLog)), "\n")

	var lastReport *reportRecord
	var lastReportTime string
	var lastRuntimeDone *runtimeDoneRecord

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec telemetryRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		switch rec.Type {
		case "platform.report":
			var r reportRecord
			if err := json.Unmarshal(rec.Record, &r); err == nil {
				lastReport = &r
				lastReportTime = rec.Time
			}
		case "platform.runtimeDone":
			var r runtimeDoneRecord
			if err := json.Unmarshal(rec.Record, &r); err == nil {
				lastRuntimeDone = &r
			}
		}
	}

	if lastReport == nil {
		return models.InvocationMetrics{}, fmt.Errorf("metrics: no platform.report line found in tail log")
	}

	m := models.InvocationMetrics{
		ClientDurationMs: clientDurationMs,
		DurationMs:       lastReport.Metrics.DurationMs,
		BilledDurationMs: lastReport.Metrics.BilledDurationMs,
		MemorySizeMb:     lastReport.Metrics.MemorySizeMB,
		MaxMemoryUsedMb:  lastReport.Metrics.MaxMemoryUsedMB,
		InitDurationMs:   lastReport.Metrics.InitDurationMs,
	}
	if ts, err := time.Parse(time.RFC3339Nano, lastReportTime); err == nil {
		m.Timestamp = ts
	}

	if extOverhead := spanDuration(lastReport.Spans, "extensionOverhead"); extOverhead != nil {
		m.ExtensionOverheadMs = *extOverhead
	}

	if m.InitDurationMs != nil {
		total := *m.InitDurationMs + m.DurationMs
		m.TotalColdStartDurationMs = &total
	}

	if lastRuntimeDone != nil {
		extras := &models.RuntimeDoneExtras{
			ProducedBytes:   lastRuntimeDone.Metrics.ProducedBytes,
			ProducedBytesMs: lastRuntimeDone.Metrics.DurationMs,
		}
		if v := spanDuration(lastRuntimeDone.Spans, "responseLatency"); v != nil {
			extras.ResponseLatencyMs = *v
		}
		if v := spanDuration(lastRuntimeDone.Spans, "responseDuration"); v != nil {
			extras.ResponseDurationMs = *v
		}
		if v := spanDuration(lastRuntimeDone.Spans, "runtimeOverhead"); v != nil {
			extras.RuntimeOverheadMs = *v
		}
		m.RuntimeDone = extras
	}

	return m, nil
}

func spanDuration(spans []span, name string) *float64 {
	for _, s := range spans {
		if s.Name == name {
			v := s.DurationMs
			return &v
		}
	}
	return nil
}
