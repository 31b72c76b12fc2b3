package metrics

import (
	"strings"
	"testing"
)

func buildTailLog(extra string) []byte {
	base := `{"time":"2024-01-01T00:00:00Z","type":"platform.start","record":{}}
{"time":"2024-01-01T00:00:00Z","type":"platform.report","record":{"status":"success","metrics":{"durationMs":120.5,"billedDurationMs":121,"memorySizeMB":256,"maxMemoryUsedMB":180,"initDurationMs":300.2},"spans":[{"name":"extensionOverhead","durationMs":5.1}]}}
`
	return []byte(base + extra)
}

func TestExtractFromTailLogColdStart(t *testing.T) {
	m, err := ExtractFromTailLog(buildTailLog(""), 150)
	if err != nil {
		t.Fatalf("ExtractFromTailLog: %v", err)
	}
	if !m.IsColdStart() {
		t.Fatalf("expected cold start since init_duration is present")
	}
	if m.DurationMs != 120.5 || m.BilledDurationMs != 121 {
		t.Fatalf("unexpected duration fields: %+v", m)
	}
	if m.TotalColdStartDurationMs == nil || *m.TotalColdStartDurationMs != 300.2+120.5 {
		t.Fatalf("expected total_cold_start_duration = init_duration + duration, got %+v", m.TotalColdStartDurationMs)
	}
	if m.ExtensionOverheadMs != 5.1 {
		t.Fatalf("expected extensionOverhead span to populate ExtensionOverheadMs, got %v", m.ExtensionOverheadMs)
	}
	if m.ClientDurationMs != 150 {
		t.Fatalf("expected client duration to be folded in, got %v", m.ClientDurationMs)
	}
}

func TestExtractFromTailLogWithRuntimeDone(t *testing.T) {
	extra := `{"time":"2024-01-01T00:00:00Z","type":"platform.runtimeDone","record":{"status":"success","spans":[{"name":"responseLatency","durationMs":2.2},{"name":"responseDuration","durationMs":3.3},{"name":"runtimeOverhead","durationMs":0.4}],"metrics":{"producedBytes":1024,"durationMs":4.4}}}
`
	m, err := ExtractFromTailLog(buildTailLog(extra), 0)
	if err != nil {
		t.Fatalf("ExtractFromTailLog: %v", err)
	}
	if m.RuntimeDone == nil {
		t.Fatalf("expected RuntimeDone to be populated")
	}
	if m.RuntimeDone.ResponseLatencyMs != 2.2 || m.RuntimeDone.ResponseDurationMs != 3.3 || m.RuntimeDone.RuntimeOverheadMs != 0.4 {
		t.Fatalf("unexpected runtime-done spans: %+v", m.RuntimeDone)
	}
	if m.RuntimeDone.ProducedBytes != 1024 || m.RuntimeDone.ProducedBytesMs != 4.4 {
		t.Fatalf("unexpected produced-bytes fields: %+v", m.RuntimeDone)
	}
}

func TestExtractFromTailLogUsesLastReportWhenMultiplePresent(t *testing.T) {
	log := strings.TrimSpace(string(buildTailLog(""))) + "\n" +
		`{"time":"x","type":"platform.report","record":{"status":"success","metrics":{"durationMs":999,"billedDurationMs":1000,"memorySizeMB":256,"maxMemoryUsedMB":200}}}`

	m, err := ExtractFromTailLog([]byte(log), 0)
	if err != nil {
		t.Fatalf("ExtractFromTailLog: %v", err)
	}
	if m.DurationMs != 999 {
		t.Fatalf("expected the last platform.report line to win, got duration_ms=%v", m.DurationMs)
	}
	if m.IsColdStart() {
		t.Fatalf("expected the last report (warm, no init_duration) to determine cold-start status")
	}
}

func TestExtractFromTailLogMissingReportIsError(t *testing.T) {
	if _, err := ExtractFromTailLog([]byte(`{"type":"platform.start","record":{}}`), 0); err == nil {
		t.Fatalf("expected an error when no platform.report line is present")
	}
}
