package harness

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/fidde/otlp-span-pipeline/internal/awslogs"
	"github.com/fidde/otlp-span-pipeline/internal/interrupt"
	"github.com/fidde/otlp-span-pipeline/pkg/report"
)

// stackParallelism is the small fan-out the optional unordered parallel
// mode uses across functions, per spec's "optional unordered parallel
// mode with a small fan-out (4)".
const stackParallelism = 4

// StackOptions configures a stack benchmark run.
type StackOptions struct {
	StackName      string
	FilterSubstr   string
	FilterRegex    string
	Parallel       bool
	PerFunction    Options // FunctionName is overwritten per discovered function
}

// RunStack discovers every AWS::Lambda::Function resource in
// opts.StackName, filters/dedupes by substring or regex, and runs
// RunSingleFunction against each — sequentially by default, or with a
// small bounded fan-out when opts.Parallel is set.
func RunStack(ctx context.Context, lambdaClient *lambda.Client, cfnClient *cloudformation.Client, flag *interrupt.Flag, opts StackOptions, logger *slog.Logger) (map[string]*report.BenchmarkReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	names, err := awslogs.ResolveStackFunctions(ctx, cfnClient, opts.StackName)
	if err != nil {
		return nil, err
	}

	names, err = filterFunctionNames(names, opts.FilterSubstr, opts.FilterRegex)
	if err != nil {
		return nil, err
	}
	names = dedupe(names)

	results := make(map[string]*report.BenchmarkReport, len(names))

	if !opts.Parallel {
		for i, name := range names {
			if flag.Triggered() {
				break
			}
			rep, err := runOne(ctx, lambdaClient, flag, opts, name)
			if err != nil {
				logger.Warn("stack benchmark: function failed", "function", name, "error", err)
			} else {
				results[name] = rep
			}
			logger.Info("stack benchmark progress", "percent", percent(i+1, len(names)))
		}
		return results, nil
	}

	return runParallel(ctx, lambdaClient, flag, opts, names, logger)
}

func runOne(ctx context.Context, client *lambda.Client, flag *interrupt.Flag, opts StackOptions, name string) (*report.BenchmarkReport, error) {
	perFunction := opts.PerFunction
	perFunction.FunctionName = name
	return RunSingleFunction(ctx, client, flag, perFunction)
}

func runParallel(ctx context.Context, client *lambda.Client, flag *interrupt.Flag, opts StackOptions, names []string, logger *slog.Logger) (map[string]*report.BenchmarkReport, error) {
	var mu sync.Mutex
	results := make(map[string]*report.BenchmarkReport, len(names))
	completed := 0

	sem := make(chan struct{}, stackParallelism)
	var wg sync.WaitGroup

	for _, name := range names {
		if flag.Triggered() {
			break
		}
		name := name
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			rep, err := runOne(ctx, client, flag, opts, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("stack benchmark: function failed", "function", name, "error", err)
			} else {
				results[name] = rep
			}
			completed++
			logger.Info("stack benchmark progress", "percent", percent(completed, len(names)))
		}()
	}

	wg.Wait()
	return results, nil
}

func filterFunctionNames(names []string, substr, pattern string) ([]string, error) {
	if substr == "" && pattern == "" {
		return names, nil
	}

	var re *regexp.Regexp
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("harness: invalid filter regex %q: %w", pattern, err)
		}
		re = compiled
	}

	var out []string
	for _, n := range names {
		if substr != "" && !strings.Contains(n, substr) {
			continue
		}
		if re != nil && !re.MatchString(n) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return done * 100 / total
}
