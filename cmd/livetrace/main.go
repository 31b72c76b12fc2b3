// Command livetrace runs the live-trace assembler (C4): it tails one or
// more CloudWatch Logs log groups (via live-tail, or FilterLogEvents
// polling as a fallback), reassembles spans by trace_id, and renders
// each finished trace to the terminal and/or forwards it to an
// OTLP/HTTP collector.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/fidde/otlp-span-pipeline/internal/assembler"
	"github.com/fidde/otlp-span-pipeline/internal/awslogs"
	appconfig "github.com/fidde/otlp-span-pipeline/internal/config"
	"github.com/fidde/otlp-span-pipeline/internal/console"
	"github.com/fidde/otlp-span-pipeline/internal/forwarder"
	"github.com/fidde/otlp-span-pipeline/internal/interrupt"
)

func main() {
	var (
		logGroups    = flag.String("log-groups", "", "comma-separated CloudWatch log group names")
		stackName    = flag.String("stack", "", "CloudFormation stack name to discover log groups from")
		profilePath  = flag.String("profile", "", "path to a YAML configuration profile")
		usePoll      = flag.Bool("poll", false, "use FilterLogEvents polling instead of live-tail")
		forwardURL   = flag.String("forward-endpoint", "", "OTLP/HTTP endpoint to forward flushed traces to")
		forwardOnly  = flag.Bool("forward-only", false, "disable console rendering, forward only")
		themeName    = flag.String("theme", "default", "console color theme")
		colorBy      = flag.String("color-by", "service", "color spans by \"service\" or \"span_id\"")
		sevAttribute = flag.String("severity-attribute", "", "span attribute the console reads event severity from")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *profilePath != "" {
		profile, err := appconfig.LoadProfile(*profilePath)
		if err != nil {
			logger.Error("loading profile", "error", err)
			os.Exit(1)
		}
		applyProfileDefaults(profile, logGroups, stackName, forwardURL, themeName, colorBy, forwardOnly)
	}

	interruptFlag := &interrupt.Flag{}
	ctx, cancel := interruptFlag.WatchSignals(context.Background())
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("loading AWS config", "error", err)
		os.Exit(1)
	}

	cwClient := cloudwatchlogs.NewFromConfig(awsCfg)
	cfnClient := cloudformation.NewFromConfig(awsCfg)
	stsClient := sts.NewFromConfig(awsCfg)

	resolution, err := resolveGroups(ctx, cfnClient, *logGroups, *stackName)
	if err != nil {
		logger.Error("resolving log groups", "error", err)
		os.Exit(1)
	}

	var source awslogs.Source
	if *usePoll {
		source = awslogs.NewPollSource(cwClient, resolution.LogGroupNames, logger)
	} else {
		arns, err := awslogs.ResolveLogGroupArns(ctx, stsClient, awsCfg, resolution.LogGroupNames)
		if err != nil {
			logger.Error("resolving log group ARNs", "error", err)
			os.Exit(1)
		}
		source = awslogs.NewLiveTailSource(cwClient, arns, "", logger)
	}
	logger.Info("tailing log groups", "log_groups", resolution.LogGroupNames, "stack", resolution.StackName, "poll", *usePoll)

	var renderer assembler.ConsoleRenderer
	if !*forwardOnly {
		renderer = console.NewRenderer(os.Stdout, console.ThemeByName(*themeName), console.ColorBy(*colorBy), *sevAttribute)
	}

	var fwd assembler.Forwarder
	if *forwardURL != "" {
		resolved, err := forwarder.ResolveURL(*forwardURL)
		if err != nil {
			logger.Error("resolving forward endpoint", "error", err)
			os.Exit(1)
		}
		fwd = forwarder.New(nil, resolved, nil, logger)
	}
	if renderer == nil && fwd == nil {
		logger.Error("nothing to do: -forward-only set without -forward-endpoint")
		os.Exit(1)
	}

	dispatcher := assembler.NewDispatcher(renderer, fwd, logger)
	asm := assembler.New(source, assembler.DefaultPolicy(), dispatcher, logger)

	if err := asm.Run(ctx); err != nil {
		logger.Error("assembler exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// resolveGroups determines the set of log groups to tail: -log-groups
// wins if set, otherwise -stack is resolved via CloudFormation.
func resolveGroups(ctx context.Context, cfnClient *cloudformation.Client, logGroupsFlag, stackNameFlag string) (awslogs.GroupResolution, error) {
	if logGroupsFlag != "" {
		var names []string
		for _, g := range strings.Split(logGroupsFlag, ",") {
			g = strings.TrimSpace(g)
			if g != "" {
				names = append(names, g)
			}
		}
		return awslogs.GroupResolution{LogGroupNames: names}, nil
	}

	if stackNameFlag == "" {
		return awslogs.GroupResolution{}, fmt.Errorf("one of -log-groups or -stack is required")
	}

	functionNames, err := awslogs.ResolveStackFunctions(ctx, cfnClient, stackNameFlag)
	if err != nil {
		return awslogs.GroupResolution{}, err
	}
	if len(functionNames) == 0 {
		return awslogs.GroupResolution{}, fmt.Errorf("stack %s has no AWS::Lambda::Function resources", stackNameFlag)
	}

	return awslogs.GroupResolution{
		LogGroupNames: awslogs.LogGroupNamesForFunctions(functionNames),
		StackName:     stackNameFlag,
	}, nil
}

func applyProfileDefaults(p *appconfig.Profile, logGroups, stackName, forwardURL, themeName, colorBy *string, forwardOnly *bool) {
	if *logGroups == "" && len(p.LogGroupPatterns) > 0 {
		*logGroups = strings.Join(p.LogGroupPatterns, ",")
	}
	if *stackName == "" {
		*stackName = p.StackName
	}
	if *forwardURL == "" {
		*forwardURL = p.OTLPEndpoint
	}
	if *themeName == "default" && p.Theme != "" {
		*themeName = p.Theme
	}
	if *colorBy == "service" && p.ColorBy != "" {
		*colorBy = p.ColorBy
	}
	if p.ForwardOnly {
		*forwardOnly = true
	}
}
