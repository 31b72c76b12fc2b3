package awslogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
)

// DefaultSessionTimeout is how long a StartLiveTail session is allowed
// to run before the source reconnects, matching the console tailer's
// "live-tail or poll" design note's 30-minute default.
const DefaultSessionTimeout = 30 * time.Minute

// LiveTailSource tails one or more log groups via StartLiveTail,
// CloudWatch Logs' push-based tailing API. Sessions expire after
// SessionTimeout and are transparently re-opened.
type LiveTailSource struct {
	Client          *cloudwatchlogs.Client
	LogGroupArns    []string
	FilterPattern   string
	SessionTimeout  time.Duration
	Logger          *slog.Logger
}

// NewLiveTailSource builds a LiveTailSource with the default session
// timeout.
func NewLiveTailSource(client *cloudwatchlogs.Client, logGroupArns []string, filterPattern string, logger *slog.Logger) *LiveTailSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveTailSource{
		Client:         client,
		LogGroupArns:   logGroupArns,
		FilterPattern:  filterPattern,
		SessionTimeout: DefaultSessionTimeout,
		Logger:         logger,
	}
}

// reconnectBackoff is the pause between a mid-stream session closure
// and the next StartLiveTail dial, keeping a persistent throttling
// error from turning into a tight reconnect loop.
const reconnectBackoff = 1 * time.Second

// dialError marks a failure to open the StartLiveTail session itself
// (bad ARN, AccessDenied, throttled at dial time) as distinct from a
// mid-stream closure, so Run can tell the two apart.
type dialError struct{ err error }

func (e *dialError) Error() string { return e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

// Run opens StartLiveTail sessions back-to-back until ctx is cancelled.
// A failure to open the session (dialError) is fatal and returned,
// per spec's "Ingestion errors are fatal to that task" rule; errors
// surfaced mid-stream (session expiry, throttling) trigger a reconnect
// instead of propagating, since those are expected, recoverable
// closures rather than the unrecoverable case spec means.
func (s *LiveTailSource) Run(ctx context.Context, lines chan<- string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.runOneSession(ctx, lines)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		var dial *dialError
		if errors.As(err, &dial) {
			return dial.err
		}

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			s.Logger.Warn("live-tail session ended, reconnecting",
				"error_code", apiErr.ErrorCode(),
				"error_fault", apiErr.ErrorFault().String(),
				"error", apiErr.ErrorMessage())
		} else {
			s.Logger.Warn("live-tail session ended, reconnecting", "error", err)
		}

		select {
		case <-time.After(reconnectBackoff):
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *LiveTailSource) runOneSession(ctx context.Context, lines chan<- string) error {
	input := &cloudwatchlogs.StartLiveTailInput{
		LogGroupIdentifiers: s.LogGroupArns,
	}
	if s.FilterPattern != "" {
		input.LogEventFilterPattern = &s.FilterPattern
	}

	sessionCtx, cancel := context.WithTimeout(ctx, s.SessionTimeout)
	defer cancel()

	out, err := s.Client.StartLiveTail(sessionCtx, input)
	if err != nil {
		return &dialError{fmt.Errorf("awslogs: StartLiveTail: %w", err)}
	}

	stream := out.GetStream()
	defer stream.Close()

	events := stream.Events()
	for {
		select {
		case <-sessionCtx.Done():
			return sessionCtx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("awslogs: live-tail stream: %w", err)
				}
				return nil
			}
			s.handleEvent(ev, lines)
		}
	}
}

func (s *LiveTailSource) handleEvent(ev types.StartLiveTailResponseStream, lines chan<- string) {
	update, ok := ev.(*types.StartLiveTailResponseStreamMemberSessionUpdate)
	if !ok {
		return
	}
	for _, r := range update.Value.SessionResults {
		if r.Message != nil {
			lines <- *r.Message
		}
	}
}
