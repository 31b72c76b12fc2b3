package assembler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fidde/otlp-span-pipeline/internal/awslogs"
)

// Assembler is the top-level C4 run loop: it owns one Source, one
// Buffer, and one Dispatcher, and awaits one of {next decoded payload,
// 1-second tick, cancellation}, per spec's concurrency model for the
// assembler loop.
type Assembler struct {
	source     awslogs.Source
	buffer     *Buffer
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// New builds an Assembler under the given flush Policy.
func New(source awslogs.Source, policy Policy, dispatcher *Dispatcher, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		source:     source,
		buffer:     NewBuffer(policy),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run drives the assembler until ctx is cancelled. On cancellation it
// performs exactly one final flush pass over every remaining bucket,
// per spec's "flushes all remaining traces once, then exits" rule, and
// returns the source's terminal error, if any (nil on a clean
// cancellation-triggered exit).
func (a *Assembler) Run(ctx context.Context) error {
	decoded := make(chan decodedPayload, 100)
	sourceErr := make(chan error, 1)

	go func() {
		sourceErr <- runSource(ctx, a.source, decoded, a.logger)
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var runErr error
	for {
		select {
		case <-ctx.Done():
			a.flushAll(ctx)
			return runErr

		case err := <-sourceErr:
			// Ingestion errors are fatal to this task and propagate to
			// shutdown, per spec's error-propagation rule.
			runErr = err
			a.flushAll(ctx)
			return runErr

		case dp, ok := <-decoded:
			if !ok {
				continue
			}
			a.ingest(dp)

		case tick := <-ticker.C:
			a.flushDue(ctx, tick)
		}
	}
}

func (a *Assembler) ingest(dp decodedPayload) {
	now := time.Now()
	for traceID, hasRoot := range dp.info.traceIDs {
		a.buffer.Add(traceID, dp.payload, hasRoot, now)
	}
}

func (a *Assembler) flushDue(ctx context.Context, now time.Time) {
	for _, f := range a.buffer.DueForFlush(now) {
		a.dispatcher.Dispatch(ctx, f)
	}
	a.logger.Debug("assembler tick", "in_flight_traces", a.buffer.Len())
}

func (a *Assembler) flushAll(ctx context.Context) {
	for _, f := range a.buffer.FlushAll() {
		a.dispatcher.Dispatch(ctx, f)
	}
}
