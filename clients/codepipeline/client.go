package codepipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cp "github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	"github.com/kulu-ops/codepipeline-monitor/config"
)

const (
	sourceStageName         = "Source"
	branchConfigurationKey  = "BranchName"
	helmRevisionNameMarker  = "helm"
	commitMessageJSONMarker = `CommitMessage":`
)

// API is the subset of the AWS CodePipeline SDK surface this tool consumes;
// it is satisfied by *codepipeline.Client and by fakes in tests
type API interface {
	ListPipelines(ctx context.Context, params *cp.ListPipelinesInput, optFns ...func(*cp.Options)) (*cp.ListPipelinesOutput, error)
	GetPipeline(ctx context.Context, params *cp.GetPipelineInput, optFns ...func(*cp.Options)) (*cp.GetPipelineOutput, error)
	ListPipelineExecutions(ctx context.Context, params *cp.ListPipelineExecutionsInput, optFns ...func(*cp.Options)) (*cp.ListPipelineExecutionsOutput, error)
	GetPipelineExecution(ctx context.Context, params *cp.GetPipelineExecutionInput, optFns ...func(*cp.Options)) (*cp.GetPipelineExecutionOutput, error)
}

// Client is the interface for reading pipeline state from AWS CodePipeline
type Client interface {
	ListPipelineNames(ctx context.Context) ([]string, error)
	GetPipelineBranch(ctx context.Context, pipelineName string) (string, error)
	GetLatestExecution(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error)
	GetCommitMessage(ctx context.Context, pipelineName, executionID string) (string, error)
}

// NewClient returns a new Client on top of the passed API
func NewClient(api API) (Client, error) {
	return &client{
		api: api,
	}, nil
}

// NewAPIFromConfig builds the real CodePipeline SDK client from the static
// credentials and region in the configuration
func NewAPIFromConfig(ctx context.Context, c config.Config) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AWSAccessKeyID, c.AWSSecretAccessKey, c.AWSSessionToken)),
	)
	if err != nil {
		return nil, err
	}

	return cp.NewFromConfig(cfg), nil
}

type client struct {
	api API
}

// ListPipelineNames drains the paginated listing before returning, so
// pipelines on later pages can't be missed
func (c *client) ListPipelineNames(ctx context.Context) ([]string, error) {
	names := []string{}

	var nextToken *string
	for {
		resp, err := c.api.ListPipelines(ctx, &cp.ListPipelinesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, err
		}

		for _, pipeline := range resp.Pipelines {
			names = append(names, aws.ToString(pipeline.Name))
		}

		if resp.NextToken == nil {
			return names, nil
		}
		nextToken = resp.NextToken
	}
}

// GetPipelineBranch reads the configured branch from the source action of the
// pipeline definition; it returns an empty string when no branch is configured
func (c *client) GetPipelineBranch(ctx context.Context, pipelineName string) (string, error) {
	resp, err := c.api.GetPipeline(ctx, &cp.GetPipelineInput{
		Name: aws.String(pipelineName),
	})
	if err != nil {
		return "", err
	}
	if resp.Pipeline == nil {
		return "", nil
	}

	for _, stage := range resp.Pipeline.Stages {
		if !strings.EqualFold(aws.ToString(stage.Name), sourceStageName) {
			continue
		}
		for _, action := range stage.Actions {
			if branch := action.Configuration[branchConfigurationKey]; branch != "" {
				return branch, nil
			}
		}
	}

	return "", nil
}

// GetLatestExecution returns the newest execution summary for the pipeline,
// or nil when the pipeline has never run
func (c *client) GetLatestExecution(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
	resp, err := c.api.ListPipelineExecutions(ctx, &cp.ListPipelineExecutionsInput{
		PipelineName: aws.String(pipelineName),
		MaxResults:   aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.PipelineExecutionSummaries) == 0 {
		return nil, nil
	}

	latest := resp.PipelineExecutionSummaries[0]

	return &latest, nil
}

// GetCommitMessage extracts the triggering commit message from the execution's
// artifact revisions, skipping helm chart revisions; it returns an empty
// string when the execution exposes no usable revision summary
func (c *client) GetCommitMessage(ctx context.Context, pipelineName, executionID string) (string, error) {
	resp, err := c.api.GetPipelineExecution(ctx, &cp.GetPipelineExecutionInput{
		PipelineName:        aws.String(pipelineName),
		PipelineExecutionId: aws.String(executionID),
	})
	if err != nil {
		return "", err
	}
	if resp.PipelineExecution == nil {
		return "", nil
	}

	for _, revision := range resp.PipelineExecution.ArtifactRevisions {
		if strings.Contains(strings.ToLower(aws.ToString(revision.Name)), helmRevisionNameMarker) {
			continue
		}

		return extractCommitMessage(aws.ToString(revision.RevisionSummary)), nil
	}

	return "", nil
}

// extractCommitMessage unwraps the commit message from a revision summary;
// CodeStarSourceConnection sources report a JSON fragment like
// {"ProviderType":"GitHub","CommitMessage":"..."} while S3/CodeCommit sources
// report the plain message
func extractCommitMessage(revisionSummary string) string {
	var parsed struct {
		CommitMessage string `json:"CommitMessage"`
	}
	if err := json.Unmarshal([]byte(revisionSummary), &parsed); err == nil && parsed.CommitMessage != "" {
		return parsed.CommitMessage
	}

	// truncated summaries aren't valid json anymore, fall back to slicing the
	// message out behind the marker
	if idx := strings.Index(revisionSummary, commitMessageJSONMarker); idx >= 0 {
		message := revisionSummary[idx+len(commitMessageJSONMarker):]
		message = strings.TrimPrefix(message, `"`)
		message = strings.TrimSuffix(message, `}`)
		message = strings.TrimSuffix(message, `"`)
		return message
	}

	return revisionSummary
}
