package awslogs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// ResolveStackFunctions lists every AWS::Lambda::Function physical
// resource ID in stackName, used by both the assembler's "derive log
// groups from a stack" mode and the C5 stack benchmark's function
// discovery, so the two subsystems agree on what "the functions in this
// stack" means.
func ResolveStackFunctions(ctx context.Context, client *cloudformation.Client, stackName string) ([]string, error) {
	var names []string
	var nextToken *string

	for {
		out, err := client.ListStackResources(ctx, &cloudformation.ListStackResourcesInput{
			StackName: &stackName,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("awslogs: ListStackResources(%s): %w", stackName, err)
		}

		for _, res := range out.StackResourceSummaries {
			if res.ResourceType == nil || *res.ResourceType != "AWS::Lambda::Function" {
				continue
			}
			if res.PhysicalResourceId == nil {
				continue
			}
			if res.ResourceStatus == cftypes.ResourceStatusDeleteComplete {
				continue
			}
			names = append(names, *res.PhysicalResourceId)
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return names, nil
}

// LogGroupNamesForFunctions maps Lambda function names to their
// well-known CloudWatch log group names, the fixed "/aws/lambda/<name>"
// convention every Lambda invocation writes to.
func LogGroupNamesForFunctions(functionNames []string) []string {
	groups := make([]string, 0, len(functionNames))
	for _, name := range functionNames {
		groups = append(groups, "/aws/lambda/"+strings.TrimSpace(name))
	}
	return groups
}
