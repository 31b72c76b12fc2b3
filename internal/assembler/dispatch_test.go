package assembler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

type recordingConsole struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingConsole) Render(traceID string, payloads []models.TelemetryPayload, sawRoot bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

type blockingForwarder struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *blockingForwarder) Forward(ctx context.Context, payloads []models.TelemetryPayload) error {
	close(f.started)
	<-f.release
	return f.err
}

func TestDispatchRendersSynchronouslyAndForwardsAsynchronously(t *testing.T) {
	console := &recordingConsole{}
	fwd := &blockingForwarder{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(console, fwd, nil)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), Flushed{TraceID: "T"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Dispatch should return without waiting for the forwarder")
	}

	console.mu.Lock()
	calls := console.calls
	console.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected console.Render to have already run, got %d calls", calls)
	}

	select {
	case <-fwd.started:
	case <-time.After(time.Second):
		t.Fatalf("expected forwarder to have been invoked concurrently")
	}
	close(fwd.release)
}

func TestDispatchToleratesNilSinks(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	d.Dispatch(context.Background(), Flushed{TraceID: "T"}) // must not panic
}

func TestDispatchLogsForwarderError(t *testing.T) {
	fwd := &blockingForwarder{started: make(chan struct{}), release: make(chan struct{}), err: errors.New("boom")}
	d := NewDispatcher(nil, fwd, nil)

	d.Dispatch(context.Background(), Flushed{TraceID: "T"})
	close(fwd.release)
	<-fwd.started
}
