package awslogs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// DefaultPollInterval is how often PollSource re-queries FilterLogEvents
// when live-tail is unavailable or unwanted (e.g. in regions without
// StartLiveTail support, or for replaying history).
const DefaultPollInterval = 2 * time.Second

// PollSource tails one or more log groups via repeated FilterLogEvents
// calls, deduplicating by event ID and advancing a high-water mark on
// StartTime so each poll only asks for events newer than the last one
// seen.
type PollSource struct {
	Client        *cloudwatchlogs.Client
	LogGroupNames []string
	PollInterval  time.Duration
	Logger        *slog.Logger

	seenEventIDs map[string]struct{}
	sinceMs      int64
}

// NewPollSource builds a PollSource starting from "now".
func NewPollSource(client *cloudwatchlogs.Client, logGroupNames []string, logger *slog.Logger) *PollSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollSource{
		Client:        client,
		LogGroupNames: logGroupNames,
		PollInterval:  DefaultPollInterval,
		Logger:        logger,
		seenEventIDs:  make(map[string]struct{}),
		sinceMs:       time.Now().UnixMilli(),
	}
}

// Run polls every PollInterval until ctx is cancelled. A FilterLogEvents
// error for one log group is logged and skipped rather than aborting
// the whole poll pass, but if every log group fails on a given pass the
// error is returned as fatal.
func (s *PollSource) Run(ctx context.Context, lines chan<- string) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.pollOnce(ctx, lines); err != nil {
				return err
			}
		}
	}
}

func (s *PollSource) pollOnce(ctx context.Context, lines chan<- string) error {
	failures := 0
	for _, group := range s.LogGroupNames {
		if err := s.pollGroup(ctx, group, lines); err != nil {
			failures++
			s.Logger.Warn("polling log group failed", "log_group", group, "error", err)
		}
	}
	if failures == len(s.LogGroupNames) && failures > 0 {
		return fmt.Errorf("awslogs: FilterLogEvents failed for every configured log group")
	}
	return nil
}

func (s *PollSource) pollGroup(ctx context.Context, group string, lines chan<- string) error {
	since := s.sinceMs
	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:  &group,
		StartTime:     &since,
	}

	var nextToken *string
	for {
		input.NextToken = nextToken
		out, err := s.Client.FilterLogEvents(ctx, input)
		if err != nil {
			return fmt.Errorf("awslogs: FilterLogEvents(%s): %w", group, err)
		}

		for _, ev := range out.Events {
			if ev.EventId == nil || ev.Message == nil {
				continue
			}
			if _, seen := s.seenEventIDs[*ev.EventId]; seen {
				continue
			}
			s.seenEventIDs[*ev.EventId] = struct{}{}
			lines <- *ev.Message
			if ev.Timestamp != nil && *ev.Timestamp >= s.sinceMs {
				s.sinceMs = *ev.Timestamp
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return nil
}
