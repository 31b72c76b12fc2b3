package assembler

import (
	"context"
	"log/slog"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// ConsoleRenderer renders one flushed trace to the terminal.
type ConsoleRenderer interface {
	Render(traceID string, payloads []models.TelemetryPayload, sawRoot bool)
}

// Forwarder compacts and forwards one flushed trace to an OTLP endpoint.
type Forwarder interface {
	Forward(ctx context.Context, payloads []models.TelemetryPayload) error
}

// Dispatcher fans out one flushed trace to the configured sinks,
// grounded on internal/storage/dual/store.go's dualWrite: the primary
// write (here, console rendering) runs synchronously and determines
// nothing about the secondary, while the secondary (forwarding) runs in
// its own goroutine with errors only logged. Unlike dualWrite, console
// is not "primary" in the success/failure sense — it cannot fail — so
// there is no error to propagate back to the caller at all.
type Dispatcher struct {
	console   ConsoleRenderer
	forwarder Forwarder
	logger    *slog.Logger
}

// NewDispatcher builds a Dispatcher. Either console or forwarder may be
// nil to disable that sink.
func NewDispatcher(console ConsoleRenderer, forwarder Forwarder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{console: console, forwarder: forwarder, logger: logger}
}

// Dispatch renders f synchronously on the console (if enabled) and
// forwards it asynchronously (if enabled), per spec's "On flush..."
// dispatch rule.
func (d *Dispatcher) Dispatch(ctx context.Context, f Flushed) {
	if d.console != nil {
		d.console.Render(f.TraceID, f.Payloads, f.SawRoot)
	}

	if d.forwarder != nil {
		go func() {
			if err := d.forwarder.Forward(ctx, f.Payloads); err != nil {
				d.logger.Warn("forwarding flushed trace failed",
					"trace_id", f.TraceID,
					"error", err,
				)
			}
		}()
	}
}
