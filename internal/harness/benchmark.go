package harness

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/fidde/otlp-span-pipeline/internal/interrupt"
	"github.com/fidde/otlp-span-pipeline/pkg/models"
	"github.com/fidde/otlp-span-pipeline/pkg/report"
)

// PropagationDelay is how long the harness waits after
// UpdateFunctionConfiguration for the mutation to propagate to fresh
// containers, per spec's "wait 5s for async configuration propagation"
// step. A var rather than a const so tests can shrink it.
var PropagationDelay = 5 * time.Second

// Options configures one single-function benchmark run.
type Options struct {
	FunctionName     string
	ProxyFunction    string
	MemoryMb         *int32
	Concurrency      int
	Rounds           int
	Payload          []byte
	EnvOverrides     map[string]string
	ClientMetrics    bool
}

// RunSingleFunction executes the full §4.5.1 algorithm: optional
// mutation, a server-metrics pass (cold + R warm rounds), an optional
// client-metrics pass, and an unconditional OriginalConfig restore on
// every exit path.
func RunSingleFunction(ctx context.Context, client *lambda.Client, flag *interrupt.Flag, opts Options) (*report.BenchmarkReport, error) {
	rep := &report.BenchmarkReport{FunctionName: opts.FunctionName, MemorySizeMb: opts.MemoryMb}

	var original *models.OriginalConfig
	if opts.MemoryMb != nil || len(opts.EnvOverrides) > 0 {
		captured, err := CaptureOriginalConfig(ctx, client, opts.FunctionName)
		if err != nil {
			return nil, err
		}
		original = &captured

		if err := ApplyMutations(ctx, client, opts.FunctionName, opts.MemoryMb, opts.EnvOverrides, captured.Environment); err != nil {
			restoreIfNeeded(ctx, client, original)
			return nil, err
		}
		select {
		case <-time.After(PropagationDelay):
		case <-ctx.Done():
		}
	}

	defer restoreIfNeeded(ctx, client, original)

	// Cold sample: one round of C concurrent invocations against fresh
	// containers, immediately followed by R warm rounds.
	cold := invokeRound(ctx, client, flag, opts)
	rep.ColdInvocations = append(rep.ColdInvocations, cold...)

	for round := 0; round < opts.Rounds; round++ {
		if flag.Triggered() {
			break
		}
		warm := invokeRound(ctx, client, flag, opts)
		rep.WarmInvocations = append(rep.WarmInvocations, warm...)
	}

	if opts.ClientMetrics && !flag.Triggered() {
		for round := 0; round < opts.Rounds; round++ {
			if flag.Triggered() {
				break
			}
			clientMs := clientMetricsRound(ctx, client, flag, opts)
			rep.ClientDurationsMs = append(rep.ClientDurationsMs, clientMs...)
		}
	}

	return rep, nil
}

func restoreIfNeeded(ctx context.Context, client *lambda.Client, original *models.OriginalConfig) {
	if original == nil {
		return
	}
	restoreCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = RestoreOriginalConfig(restoreCtx, client, *original)
}

// invokeRound fans out opts.Concurrency invocations concurrently and
// joins them all, racing the join against the interrupt flag per
// round, per spec's "Ctrl-C races against each join set via a select"
// concurrency rule.
func invokeRound(ctx context.Context, client *lambda.Client, flag *interrupt.Flag, opts Options) []report.InvocationOutcome {
	results := make(chan report.InvocationOutcome, opts.Concurrency)
	var wg sync.WaitGroup

	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := invokeWithTail(ctx, client, opts.FunctionName, opts.Payload)
			results <- report.InvocationOutcome{
				Metrics:       res.metrics,
				FunctionError: res.functionError,
				Err:           res.err,
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		flag.Set()
		<-done
	}
	close(results)

	outcomes := make([]report.InvocationOutcome, 0, opts.Concurrency)
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// clientMetricsRound repeats the warm phase with LogType=None,
// wall-clock timing each call (or using the proxy's self-reported
// timing when configured).
func clientMetricsRound(ctx context.Context, client *lambda.Client, flag *interrupt.Flag, opts Options) []float64 {
	results := make(chan float64, opts.Concurrency)
	var wg sync.WaitGroup

	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ms, err := invokeNoTail(ctx, client, opts.FunctionName, opts.ProxyFunction, opts.Payload)
			if err == nil {
				results <- ms
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		flag.Set()
		<-done
	}
	close(results)

	out := make([]float64, 0, opts.Concurrency)
	for ms := range results {
		out = append(out, ms)
	}
	return out
}
