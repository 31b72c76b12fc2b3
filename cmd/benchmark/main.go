// Command benchmark runs the invocation harness (C5): it invokes one
// Lambda function (or every function in a CloudFormation stack)
// concurrently across a cold + N warm rounds, optionally mutating
// memory/environment for the run and always restoring the original
// configuration, and writes one JSON report per function.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/fidde/otlp-span-pipeline/internal/harness"
	"github.com/fidde/otlp-span-pipeline/internal/interrupt"
	"github.com/fidde/otlp-span-pipeline/internal/telemetry"
	"github.com/fidde/otlp-span-pipeline/pkg/report"
)

func main() {
	var (
		functionName = flag.String("function", "", "Lambda function name to benchmark")
		stackName    = flag.String("stack", "", "CloudFormation stack name; benchmarks every function in it")
		filterSubstr = flag.String("filter", "", "substring filter applied to discovered function names (stack mode)")
		filterRegex  = flag.String("filter-regex", "", "regex filter applied to discovered function names (stack mode)")
		parallelRun  = flag.Bool("parallel-stack", false, "run stack benchmarks with bounded parallelism instead of sequentially")
		memoryMb     = flag.Int("memory-mb", 0, "override memory size (MB); 0 leaves it unchanged")
		concurrency  = flag.Int("concurrency", 1, "concurrent invocations per round")
		rounds       = flag.Int("rounds", 5, "warm rounds after the cold sample")
		payloadPath  = flag.String("payload", "", "path to a JSON file used as the invocation payload")
		envOverrides = flag.String("env", "", "comma-separated KEY=VALUE environment overrides")
		proxy        = flag.String("proxy", "", "proxy function name for client-side timing")
		clientMetric = flag.Bool("client-metrics", false, "additionally run a LogType=None client-timing pass")
		outputDir    = flag.String("output", "./benchmark-results", "directory reports are written under")
		otlpEndpoint = flag.String("otlp-endpoint", "", "OTLP/HTTP endpoint the harness's own client spans are exported to")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *functionName == "" && *stackName == "" {
		logger.Error("one of -function or -stack is required")
		os.Exit(1)
	}

	interruptFlag := &interrupt.Flag{}
	ctx, cancel := interruptFlag.WatchSignals(context.Background())
	defer cancel()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "otlp-span-pipeline-benchmark", Endpoint: *otlpEndpoint})
	if err != nil {
		logger.Error("initializing telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("shutting down telemetry", "error", err)
		}
	}()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("loading AWS config", "error", err)
		os.Exit(1)
	}
	lambdaClient := lambda.NewFromConfig(awsCfg)

	payload, err := loadPayload(*payloadPath)
	if err != nil {
		logger.Error("loading payload", "error", err)
		os.Exit(1)
	}

	var memPtr *int32
	if *memoryMb > 0 {
		m := int32(*memoryMb)
		memPtr = &m
	}

	perFunction := harness.Options{
		ProxyFunction: *proxy,
		MemoryMb:      memPtr,
		Concurrency:   *concurrency,
		Rounds:        *rounds,
		Payload:       payload,
		EnvOverrides:  parseEnvOverrides(*envOverrides),
		ClientMetrics: *clientMetric,
	}

	var reports map[string]*report.BenchmarkReport

	if *stackName != "" {
		cfnClient := cloudformation.NewFromConfig(awsCfg)
		reports, err = harness.RunStack(ctx, lambdaClient, cfnClient, interruptFlag, harness.StackOptions{
			StackName:    *stackName,
			FilterSubstr: *filterSubstr,
			FilterRegex:  *filterRegex,
			Parallel:     *parallelRun,
			PerFunction:  perFunction,
		}, logger)
		if err != nil {
			logger.Error("stack benchmark failed", "error", err)
			os.Exit(1)
		}
	} else {
		perFunction.FunctionName = *functionName
		rep, err := harness.RunSingleFunction(ctx, lambdaClient, interruptFlag, perFunction)
		if err != nil {
			logger.Error("benchmark failed", "function", *functionName, "error", err)
			os.Exit(1)
		}
		reports = map[string]*report.BenchmarkReport{*functionName: rep}
	}

	for name, rep := range reports {
		if err := writeReport(*outputDir, rep); err != nil {
			logger.Error("writing report", "function", name, "error", err)
			continue
		}
		logger.Info("benchmark complete", "function", name, "success_rate", rep.SuccessRate())
	}
}

func loadPayload(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func parseEnvOverrides(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// writeReport persists one function's report to
// {output_dir}/{memory}mb/{function}.json, per pkg/report's documented
// layout. The memory segment comes from the run's memory override; with
// no override the report goes to {output_dir}/default/{function}.json.
func writeReport(outputDir string, rep *report.BenchmarkReport) error {
	memorySegment := "default"
	if rep.MemorySizeMb != nil {
		memorySegment = strconv.Itoa(int(*rep.MemorySizeMb)) + "mb"
	}
	dir := filepath.Join(outputDir, memorySegment)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(dir, rep.FunctionName+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}
