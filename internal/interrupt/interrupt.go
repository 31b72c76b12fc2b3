// Package interrupt exposes a single process-wide cancellation flag,
// grounded on the teacher's sync.Once-guarded shutdown idiom in
// internal/storage/clickhouse/buffer.go (BatchBuffer.Close): one exported
// pair of methods wrapping a single sync primitive, here an atomic.Bool
// instead of a sync.Once, because the flag is tested repeatedly rather
// than fired once.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Flag is a process-wide boolean that long-running loops poll between
// units of work, and that SIGINT/SIGTERM handlers set.
type Flag struct {
	set atomic.Bool
}

// Set marks the flag as triggered. Idempotent.
func (f *Flag) Set() { f.set.Store(true) }

// Triggered reports whether Set has been called.
func (f *Flag) Triggered() bool { return f.set.Load() }

// WatchSignals registers os.Interrupt and SIGTERM handlers that call Set,
// and additionally cancels ctx so in-flight AWS SDK calls using it unwind
// promptly. Returns a stop function that should be deferred by the
// caller, mirroring the teacher's cmd/server/main.go pattern of a single
// signal.Notify call near the top of main.
func (f *Flag) WatchSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			f.Set()
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
