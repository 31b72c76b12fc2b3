// Package harness implements the invocation harness (C5): it invokes
// one or more Lambda functions concurrently, injects W3C trace context,
// extracts server- and client-side metrics, and always restores the
// function's original configuration on exit, grounded on
// cmd/server/main.go's goroutine+errChan+sigChan shutdown shape,
// generalized from "servers" to "concurrent invocation rounds".
package harness

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
)

// CaptureOriginalConfig reads a function's current memory size and
// environment variables, to be restored later by RestoreOriginalConfig.
// Per spec, capture only happens when the harness intends to mutate
// memory or env — callers decide whether to call this at all.
func CaptureOriginalConfig(ctx context.Context, client *lambda.Client, functionName string) (models.OriginalConfig, error) {
	out, err := client.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: &functionName,
	})
	if err != nil {
		return models.OriginalConfig{}, fmt.Errorf("harness: GetFunctionConfiguration(%s): %w", functionName, err)
	}

	env := make(map[string]string)
	if out.Environment != nil {
		for k, v := range out.Environment.Variables {
			env[k] = v
		}
	}

	var memory int32
	if out.MemorySize != nil {
		memory = *out.MemorySize
	}

	return models.OriginalConfig{
		FunctionName: functionName,
		MemorySizeMb: memory,
		Environment:  env,
	}, nil
}

// ApplyMutations applies a memory override and merged environment
// variables (forcing JSON log format at system-level DEBUG, per spec),
// returning once UpdateFunctionConfiguration has been accepted. The
// caller is responsible for waiting out the propagation delay
// afterward (see PropagationDelay).
func ApplyMutations(ctx context.Context, client *lambda.Client, functionName string, memoryMb *int32, envOverrides map[string]string, baseEnv map[string]string) error {
	merged := make(map[string]string, len(baseEnv)+len(envOverrides)+2)
	for k, v := range baseEnv {
		merged[k] = v
	}
	for k, v := range envOverrides {
		merged[k] = v
	}
	merged["AWS_LAMBDA_LOG_FORMAT"] = "JSON"
	merged["AWS_LAMBDA_LOG_LEVEL"] = "DEBUG"

	input := &lambda.UpdateFunctionConfigurationInput{
		FunctionName: &functionName,
		Environment:  &types.Environment{Variables: merged},
	}
	if memoryMb != nil {
		input.MemorySize = memoryMb
	}

	if _, err := client.UpdateFunctionConfiguration(ctx, input); err != nil {
		return fmt.Errorf("harness: UpdateFunctionConfiguration(%s): %w", functionName, err)
	}
	return nil
}

// RestoreOriginalConfig unconditionally reverts memory and environment
// to a previously captured OriginalConfig. Errors are returned, not
// swallowed, but the caller must invoke this on every exit path
// (success, error, interrupt) per spec's "unconditionally restores"
// rule — it is not this function's job to guarantee that, only to do
// the restore correctly when called.
func RestoreOriginalConfig(ctx context.Context, client *lambda.Client, original models.OriginalConfig) error {
	memory := original.MemorySizeMb
	_, err := client.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: &original.FunctionName,
		MemorySize:   &memory,
		Environment:  &types.Environment{Variables: original.Environment},
	})
	if err != nil {
		return fmt.Errorf("harness: restoring original configuration for %s: %w", original.FunctionName, err)
	}
	return nil
}
