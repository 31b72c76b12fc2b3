package awslogs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ResolveLogGroupArns turns bare log group names into the fully
// qualified ARNs StartLiveTail's LogGroupIdentifiers requires (unlike
// FilterLogEvents, which accepts bare names), fetching the caller's
// account ID once via STS.
func ResolveLogGroupArns(ctx context.Context, stsClient *sts.Client, awsCfg aws.Config, logGroupNames []string) ([]string, error) {
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("awslogs: GetCallerIdentity: %w", err)
	}
	if identity.Account == nil {
		return nil, fmt.Errorf("awslogs: GetCallerIdentity returned no account ID")
	}

	arns := make([]string, 0, len(logGroupNames))
	for _, name := range logGroupNames {
		arns = append(arns, fmt.Sprintf("arn:aws:logs:%s:%s:log-group:%s:*", awsCfg.Region, *identity.Account, name))
	}
	return arns, nil
}
