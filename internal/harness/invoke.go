package harness

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fidde/otlp-span-pipeline/internal/metrics"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

var tracer = otel.Tracer("github.com/fidde/otlp-span-pipeline/internal/harness")

// headerCarrier adapts a map[string]string to propagation.TextMapCarrier
// so the active propagator can write W3C trace-context headers into it.
type headerCarrier map[string]string

func (c headerCarrier) Get(key string) string        { return c[key] }
func (c headerCarrier) Set(key, value string)         { c[key] = value }
func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// injectTraceContext starts a client span named "invoke <function>",
// serializes its context via the active W3C propagator, and returns the
// headers to merge into the invocation payload plus a function that
// ends the span. Grounded on spec §4.5.4's propagation-bridge
// requirement.
func injectTraceContext(ctx context.Context, functionName string) (context.Context, map[string]string, func()) {
	ctx, span := tracer.Start(ctx, "invoke "+functionName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("faas.invoked_name", functionName))

	headers := make(headerCarrier)
	otel.GetTextMapPropagator().Inject(ctx, headers)

	// The harness itself doesn't run inside a Lambda execution
	// environment, so an X-Ray trace header is only ever present when
	// the operator's own process is invoked from one (e.g. chained
	// harness runs); forward it unchanged when set, per spec's
	// "X-Amzn-Trace-Id when present" rule.
	if xrayHeader := os.Getenv("_X_AMZN_TRACE_ID"); xrayHeader != "" {
		headers["X-Amzn-Trace-Id"] = xrayHeader
	}

	return ctx, map[string]string(headers), func() { span.End() }
}

// mergePayloadHeaders decodes payload as a JSON object (or starts an
// empty one) and sets its "headers" field to the given trace-context
// headers, matching spec's "writes the resulting headers into the
// Lambda payload under headers" rule.
func mergePayloadHeaders(payload []byte, headers map[string]string) ([]byte, error) {
	obj := make(map[string]json.RawMessage)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("harness: payload must be a JSON object to carry trace headers: %w", err)
		}
	}

	encodedHeaders, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("harness: marshaling trace headers: %w", err)
	}
	obj["headers"] = encodedHeaders

	return json.Marshal(obj)
}

// invokeResult is one completed invocation's metrics plus any
// FunctionError reported by Lambda.
type invokeResult struct {
	metrics       models.InvocationMetrics
	functionError string
	err           error
}

// invokeWithTail invokes functionName with LogType=Tail, decodes the
// base64 tail log, and extracts metrics from it, tracking wall-clock
// duration as the client-measured time.
func invokeWithTail(ctx context.Context, client *lambda.Client, functionName string, payload []byte) invokeResult {
	ctx, headers, end := injectTraceContext(ctx, functionName)
	defer end()

	body, err := mergePayloadHeaders(payload, headers)
	if err != nil {
		return invokeResult{err: err}
	}

	start := time.Now()
	out, err := client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &functionName,
		Payload:      body,
		LogType:      types.LogTypeTail,
	})
	clientDuration := float64(time.Since(start).Milliseconds())
	if err != nil {
		return invokeResult{err: fmt.Errorf("harness: Invoke(%s): %w", functionName, err)}
	}

	var functionError string
	if out.FunctionError != nil {
		functionError = *out.FunctionError
	}

	if out.LogResult == nil {
		return invokeResult{err: fmt.Errorf("harness: Invoke(%s): no LogResult despite LogType=Tail", functionName), functionError: functionError}
	}
	tailLog, err := base64.StdEncoding.DecodeString(*out.LogResult)
	if err != nil {
		return invokeResult{err: fmt.Errorf("harness: decoding tail log: %w", err), functionError: functionError}
	}

	m, err := metrics.ExtractFromTailLog(tailLog, clientDuration)
	if err != nil {
		return invokeResult{err: fmt.Errorf("harness: extracting metrics: %w", err), functionError: functionError}
	}

	return invokeResult{metrics: m, functionError: functionError}
}

// invokeNoTail invokes functionName with LogType=None, wall-clock
// timing the call, for the optional client-metrics pass. When proxy is
// non-empty the payload is wrapped as {target, payload} and sent to the
// proxy instead; the proxy's own {invocation_time_ms} response
// supersedes the locally measured duration.
func invokeNoTail(ctx context.Context, client *lambda.Client, functionName, proxy string, payload []byte) (float64, error) {
	ctx, headers, end := injectTraceContext(ctx, functionName)
	defer end()

	body, err := mergePayloadHeaders(payload, headers)
	if err != nil {
		return 0, err
	}

	target := functionName
	if proxy != "" {
		target = proxy
		body, err = json.Marshal(struct {
			Target  string          `json:"target"`
			Payload json.RawMessage `json:"payload"`
		}{Target: functionName, Payload: body})
		if err != nil {
			return 0, fmt.Errorf("harness: wrapping proxy payload: %w", err)
		}
	}

	start := time.Now()
	out, err := client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &target,
		Payload:      body,
		LogType:      types.LogTypeNone,
	})
	wallClockMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("harness: Invoke(%s): %w", target, err)
	}

	if proxy == "" {
		return wallClockMs, nil
	}

	var proxyResponse struct {
		InvocationTimeMs float64 `json:"invocation_time_ms"`
	}
	if err := json.Unmarshal(out.Payload, &proxyResponse); err != nil {
		// Proxy didn't report its own timing; fall back to wall clock.
		return wallClockMs, nil
	}
	return proxyResponse.InvocationTimeMs, nil
}
