// Package config resolves the exporter's and tailer's effective
// configuration from {environment variable, constructor argument,
// default} with environment winning (the service name, where an explicit
// argument wins, is the one exception), grounded on the teacher's
// cmd/server/main.go getEnv/getEnvBool helpers, generalized into a
// reusable per-option resolver instead of one-off functions.
package config

import (
	"os"
	"strconv"
)

const (
	EnvServiceName          = "OTEL_SERVICE_NAME"
	EnvLambdaFunctionName   = "AWS_LAMBDA_FUNCTION_NAME"
	EnvOTLPEndpoint         = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPTracesEndpoint   = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	EnvOTLPHeaders          = "OTEL_EXPORTER_OTLP_HEADERS"
	EnvOTLPTracesHeaders    = "OTEL_EXPORTER_OTLP_TRACES_HEADERS"
	EnvCompressionLevel     = "OTLP_STDOUT_SPAN_EXPORTER_COMPRESSION_LEVEL"
	EnvOutputType           = "OTLP_STDOUT_SPAN_EXPORTER_OUTPUT_TYPE"
	EnvProcessorMode        = "LAMBDA_EXTENSION_SPAN_PROCESSOR_MODE"
	EnvProcessorQueueSize   = "LAMBDA_SPAN_PROCESSOR_QUEUE_SIZE"

	DefaultServiceName      = "unknown-service"
	DefaultCompressionLevel = 6
	DefaultOutputType       = "stdout"
	DefaultProcessorMode    = "sync"
	DefaultQueueSize        = 2048
)

// OutputType selects the exporter's write target.
type OutputType string

const (
	OutputStdout OutputType = "stdout"
	OutputPipe   OutputType = "pipe"
)

// ExporterOptions is the exporter's fully-resolved configuration.
type ExporterOptions struct {
	CompressionLevel int
	ServiceName      string
	Headers          map[string]string
	OutputType       OutputType
	Level            string
}

// ExporterArgs is what a caller may pass to the exporter constructor;
// every field is optional. CompressionLevel and OutputType are
// overridden by their environment variables when set (env > ctor arg >
// default), and Headers are merged with the header env vars (env wins on
// conflict). ServiceName wins over the environment when non-empty (see
// resolveServiceName), and Level has no environment variable.
type ExporterArgs struct {
	CompressionLevel *int
	ServiceName      string
	Headers          map[string]string
	OutputType       OutputType
	Level            string
}

// ResolveExporterOptions applies the precedence chain for every
// recognized exporter option.
func ResolveExporterOptions(args ExporterArgs) ExporterOptions {
	return ExporterOptions{
		CompressionLevel: resolveCompressionLevel(args.CompressionLevel),
		ServiceName:      resolveServiceName(args.ServiceName),
		Headers:          MergeHeaders(args.Headers, os.Getenv(EnvOTLPHeaders), os.Getenv(EnvOTLPTracesHeaders)),
		OutputType:       resolveOutputType(args.OutputType),
		Level:            args.Level,
	}
}

func resolveCompressionLevel(arg *int) int {
	if raw, ok := os.LookupEnv(EnvCompressionLevel); ok {
		if lvl, err := strconv.Atoi(raw); err == nil && lvl >= 0 && lvl <= 9 {
			return lvl
		}
	}
	if arg != nil && *arg >= 0 && *arg <= 9 {
		return *arg
	}
	return DefaultCompressionLevel
}

func resolveOutputType(arg OutputType) OutputType {
	if raw, ok := os.LookupEnv(EnvOutputType); ok {
		switch OutputType(raw) {
		case OutputPipe, OutputStdout:
			return OutputType(raw)
		}
	}
	if arg == OutputPipe || arg == OutputStdout {
		return arg
	}
	return DefaultOutputType
}

// resolveServiceName applies: explicit ctor arg > OTEL_SERVICE_NAME >
// AWS_LAMBDA_FUNCTION_NAME > "unknown-service". Note this one option's
// fallback chain runs in the opposite order of the general precedence
// rule (ctor arg wins over env) because the spec treats "explicit
// service_name" as the most specific override; OTEL_SERVICE_NAME is only
// consulted when the caller did not name a service explicitly.
func resolveServiceName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(EnvServiceName); v != "" {
		return v
	}
	if v := os.Getenv(EnvLambdaFunctionName); v != "" {
		return v
	}
	return DefaultServiceName
}

// ResolveTracesEndpoint applies endpoint precedence: traces-specific env
// wins over generic env wins over the explicit argument.
func ResolveTracesEndpoint(explicit string) string {
	if v := os.Getenv(EnvOTLPTracesEndpoint); v != "" {
		return v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" {
		return v
	}
	return explicit
}
