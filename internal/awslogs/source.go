// Package awslogs tails CloudWatch Logs log groups and hands raw log
// lines to the assembler, grounded on internal/receiver/http.go's
// Start/Shutdown server lifecycle shape, generalized from "listen on an
// HTTP port" to "subscribe to a CloudWatch Logs API stream."
package awslogs

import (
	"context"
)

// Source produces raw CloudWatch Logs event messages until ctx is
// cancelled or an unrecoverable API error occurs.
type Source interface {
	// Run blocks, writing one raw log line per emitted event onto lines,
	// until ctx is cancelled or a fatal AWS API error occurs. lines is
	// never closed by Run; the caller owns the channel's lifetime.
	Run(ctx context.Context, lines chan<- string) error
}

// GroupResolution is how the set of log groups to tail was determined,
// carried through for status logging.
type GroupResolution struct {
	LogGroupNames []string
	StackName     string // empty unless resolved from a CloudFormation stack
}
