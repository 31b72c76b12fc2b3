package config

import "strings"

// ParseHeaderList parses a "key=value,key=value" list as used by
// OTEL_EXPORTER_OTLP_HEADERS / OTEL_EXPORTER_OTLP_TRACES_HEADERS. Keys are
// lower-cased; malformed pairs (no '=') are skipped.
func ParseHeaderList(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

// MergeHeaders computes the envelope's effective header set: the union of
// constructor-supplied headers, the generic OTEL_EXPORTER_OTLP_HEADERS
// env var, and the signal-specific OTEL_EXPORTER_OTLP_TRACES_HEADERS env
// var, with traces-specific winning over generic and env winning over the
// constructor argument. content-type and content-encoding keys are always
// stripped, since those are top-level envelope fields, never headers.
func MergeHeaders(constructorHeaders map[string]string, genericEnv, tracesEnv string) map[string]string {
	merged := make(map[string]string)
	for k, v := range constructorHeaders {
		merged[strings.ToLower(k)] = v
	}
	for k, v := range ParseHeaderList(genericEnv) {
		merged[k] = v
	}
	for k, v := range ParseHeaderList(tracesEnv) {
		merged[k] = v
	}

	delete(merged, "content-type")
	delete(merged, "content-encoding")

	if len(merged) == 0 {
		return nil
	}
	return merged
}
