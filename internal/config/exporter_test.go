package config

import "testing"

func TestResolveCompressionLevelPrecedence(t *testing.T) {
	t.Setenv(EnvCompressionLevel, "")
	arg := 3
	if got := resolveCompressionLevel(&arg); got != 3 {
		t.Fatalf("expected ctor arg to win over default, got %d", got)
	}

	t.Setenv(EnvCompressionLevel, "9")
	if got := resolveCompressionLevel(&arg); got != 9 {
		t.Fatalf("expected env to win over ctor arg, got %d", got)
	}

	t.Setenv(EnvCompressionLevel, "")
	if got := resolveCompressionLevel(nil); got != DefaultCompressionLevel {
		t.Fatalf("expected default %d, got %d", DefaultCompressionLevel, got)
	}
}

func TestResolveServiceNameFallbackOrder(t *testing.T) {
	t.Setenv(EnvServiceName, "")
	t.Setenv(EnvLambdaFunctionName, "")
	if got := resolveServiceName(""); got != DefaultServiceName {
		t.Fatalf("expected default service name, got %q", got)
	}

	t.Setenv(EnvLambdaFunctionName, "my-lambda")
	if got := resolveServiceName(""); got != "my-lambda" {
		t.Fatalf("expected lambda function name fallback, got %q", got)
	}

	t.Setenv(EnvServiceName, "otel-name")
	if got := resolveServiceName(""); got != "otel-name" {
		t.Fatalf("expected OTEL_SERVICE_NAME to win over lambda function name, got %q", got)
	}

	if got := resolveServiceName("explicit"); got != "explicit" {
		t.Fatalf("expected explicit argument to win over both env vars, got %q", got)
	}
}

func TestMergeHeadersStripsContentKeysAndOmitsEmpty(t *testing.T) {
	merged := MergeHeaders(nil, "", "")
	if merged != nil {
		t.Fatalf("expected nil for empty inputs, got %v", merged)
	}

	merged = MergeHeaders(
		map[string]string{"x-api-key": "ctor", "content-type": "should-be-stripped"},
		"x-api-key=generic,content-encoding=gzip",
		"x-api-key=traces-wins",
	)

	if merged["x-api-key"] != "traces-wins" {
		t.Fatalf("expected traces-specific header to win, got %q", merged["x-api-key"])
	}
	if _, ok := merged["content-type"]; ok {
		t.Fatalf("content-type must never appear in headers")
	}
	if _, ok := merged["content-encoding"]; ok {
		t.Fatalf("content-encoding must never appear in headers")
	}
}

func TestResolveTracesEndpointPrecedence(t *testing.T) {
	t.Setenv(EnvOTLPEndpoint, "")
	t.Setenv(EnvOTLPTracesEndpoint, "")
	if got := ResolveTracesEndpoint("https://explicit.example.com"); got != "https://explicit.example.com" {
		t.Fatalf("expected explicit argument, got %q", got)
	}

	t.Setenv(EnvOTLPEndpoint, "https://generic.example.com")
	if got := ResolveTracesEndpoint(""); got != "https://generic.example.com" {
		t.Fatalf("expected generic env, got %q", got)
	}

	t.Setenv(EnvOTLPTracesEndpoint, "https://traces.example.com")
	if got := ResolveTracesEndpoint(""); got != "https://traces.example.com" {
		t.Fatalf("expected traces-specific env to win, got %q", got)
	}
}
