// Command lambda-extension is a boundary stub, not a full Lambda
// Extension. The real Extensions API event loop (Register/NextEvent
// calls against the Lambda Extensions HTTP API, and the extension's own
// init/shutdown lifecycle) is explicitly out of scope per spec's
// Non-goals — it is an external collaborator referenced only through
// this binary's one real responsibility: opening the named pipe C1's
// Exporter writes to (see internal/exporter.DefaultPipePath) and
// draining it so a reader is always present, the same convention the
// stdout/named-pipe wire format documents for local/sandboxed testing
// of the exporter without a real Lambda Telemetry API subscription.
package main

import (
	"bufio"
	"flag"
	"log/slog"
	"os"

	"github.com/fidde/otlp-span-pipeline/internal/envelope"
	"github.com/fidde/otlp-span-pipeline/internal/exporter"
)

func main() {
	pipePath := flag.String("pipe", exporter.DefaultPipePath, "named pipe to read exported envelope lines from")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	for {
		if err := drainOnce(*pipePath, logger); err != nil {
			logger.Error("reading named pipe", "path", *pipePath, "error", err)
			os.Exit(1)
		}
		// The exporter opens-then-closes the pipe on every write (and on
		// every empty-batch touch), so a reader sees EOF after each
		// message and must reopen to see the next one.
	}
}

// drainOnce opens the pipe, reads lines until EOF, and logs one decode
// summary per line. It never interprets the envelope beyond decoding
// it — forwarding or buffering belongs to C4's assembler, not this stub.
func drainOnce(path string, logger *slog.Logger) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload, skipped, err := envelope.Decode(line)
		if err != nil {
			logger.Warn("discarding line that failed to decode", "error", err)
			continue
		}
		if skipped {
			continue
		}
		logger.Debug("received envelope", "source", payload.Source, "endpoint", payload.Endpoint, "bytes", len(payload.Payload))
	}
	return scanner.Err()
}
