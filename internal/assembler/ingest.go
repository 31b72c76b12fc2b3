package assembler

import (
	"context"
	"log/slog"

	"github.com/fidde/otlp-span-pipeline/internal/awslogs"
	"github.com/fidde/otlp-span-pipeline/internal/envelope"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// decodedPayload is one successfully-decoded line plus the trace_ids it
// carries, handed from the ingest goroutine to the assembler run loop.
type decodedPayload struct {
	payload models.TelemetryPayload
	info    traceInfo
}

// ingestLineLoop reads raw log lines from a bounded channel (backed by
// an awslogs.Source), decodes each as an envelope, and forwards decoded
// payloads to the assembler loop. Malformed lines and decode errors are
// warnings per spec's "Log parse errors, decode errors... are warnings,
// not fatal" rule.
func ingestLineLoop(ctx context.Context, lines <-chan string, decoded chan<- decodedPayload, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			decodeLine(line, decoded, logger)
		}
	}
}

func decodeLine(line string, decoded chan<- decodedPayload, logger *slog.Logger) {
	payload, skipped, err := envelope.Decode([]byte(line))
	if err != nil {
		logger.Warn("assembler: discarding line that failed to decode", "error", err)
		return
	}
	if skipped {
		return
	}

	info, err := extractTraceInfo(payload.Payload)
	if err != nil {
		logger.Warn("assembler: discarding payload with unparseable protobuf body", "error", err)
		return
	}
	if len(info.traceIDs) == 0 {
		logger.Warn("assembler: discarding payload with no spans")
		return
	}

	decoded <- decodedPayload{payload: payload, info: info}
}

// runSource drives one awslogs.Source, translating its raw lines into
// decoded payloads on behalf of the assembler's ingest stage.
func runSource(ctx context.Context, source awslogs.Source, decoded chan<- decodedPayload, logger *slog.Logger) error {
	lines := make(chan string, 100) // bounded per spec's backpressure rule

	go ingestLineLoop(ctx, lines, decoded, logger)

	err := source.Run(ctx, lines)
	close(lines)
	return err
}
