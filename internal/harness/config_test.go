package harness

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// roundTripperFunc lets a test stub out the transport layer under an
// aws-sdk-go-v2 client without reimplementing its request signing.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestLambdaClient(t *testing.T, handler func(*http.Request) (*http.Response, error)) *lambda.Client {
	t.Helper()
	return lambda.New(lambda.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(handler),
		},
		BaseEndpoint: aws.String("https://lambda.invalid"),
	})
}

func TestRestoreOriginalConfigSendsCapturedMemoryAndEnv(t *testing.T) {
	var capturedBody []byte
	client := newTestLambdaClient(t, func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		capturedBody = body
		return jsonResponse(200, `{"FunctionName":"fn","MemorySize":128}`), nil
	})

	original := models.OriginalConfig{
		FunctionName: "fn",
		MemorySizeMb: 128,
		Environment:  map[string]string{"FOO": "bar"},
	}

	if err := RestoreOriginalConfig(context.Background(), client, original); err != nil {
		t.Fatalf("RestoreOriginalConfig: %v", err)
	}
	if !bytes.Contains(capturedBody, []byte(`"MemorySize":128`)) {
		t.Fatalf("expected restored request to carry the original memory size, got %s", capturedBody)
	}
	if !bytes.Contains(capturedBody, []byte(`"FOO":"bar"`)) {
		t.Fatalf("expected restored request to carry the original environment, got %s", capturedBody)
	}
}

func TestCaptureOriginalConfigReadsCurrentMemoryAndEnv(t *testing.T) {
	client := newTestLambdaClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"FunctionName":"fn","MemorySize":256,"Environment":{"Variables":{"A":"1"}}}`), nil
	})

	cfg, err := CaptureOriginalConfig(context.Background(), client, "fn")
	if err != nil {
		t.Fatalf("CaptureOriginalConfig: %v", err)
	}
	if cfg.MemorySizeMb != 256 || cfg.Environment["A"] != "1" {
		t.Fatalf("unexpected captured config: %+v", cfg)
	}
}
