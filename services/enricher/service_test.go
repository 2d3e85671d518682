package enricher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/stretchr/testify/assert"

	"github.com/kulu-ops/codepipeline-monitor/api"
)

type fakeClient struct {
	listPipelineNames  func(ctx context.Context) ([]string, error)
	getPipelineBranch  func(ctx context.Context, pipelineName string) (string, error)
	getLatestExecution func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error)
	getCommitMessage   func(ctx context.Context, pipelineName, executionID string) (string, error)
}

func (f *fakeClient) ListPipelineNames(ctx context.Context) ([]string, error) {
	return f.listPipelineNames(ctx)
}

func (f *fakeClient) GetPipelineBranch(ctx context.Context, pipelineName string) (string, error) {
	return f.getPipelineBranch(ctx, pipelineName)
}

func (f *fakeClient) GetLatestExecution(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
	return f.getLatestExecution(ctx, pipelineName)
}

func (f *fakeClient) GetCommitMessage(ctx context.Context, pipelineName, executionID string) (string, error) {
	return f.getCommitMessage(ctx, pipelineName, executionID)
}

func getHappyPathClient() *fakeClient {
	started := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)
	stopped := time.Date(2024, 1, 1, 11, 35, 30, 0, time.UTC)

	return &fakeClient{
		getPipelineBranch: func(ctx context.Context, pipelineName string) (string, error) {
			return "main", nil
		},
		getLatestExecution: func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
			return &types.PipelineExecutionSummary{
				PipelineExecutionId: aws.String("exec-1"),
				Status:              types.PipelineExecutionStatusSucceeded,
				StartTime:           aws.Time(started),
				LastUpdateTime:      aws.Time(stopped),
			}, nil
		},
		getCommitMessage: func(ctx context.Context, pipelineName, executionID string) (string, error) {
			return "Update dependencies", nil
		},
	}
}

func TestEnrich(t *testing.T) {

	t.Run("ReturnsFullyEnrichedRow", func(t *testing.T) {

		service, _ := NewService(getHappyPathClient(), time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.False(t, row.Degraded)
		assert.Equal(t, "core-service-1", row.Pipeline.Name)
		assert.Equal(t, "main", row.Execution.Branch)
		assert.Equal(t, api.StatusSucceeded, row.Execution.Status)
		assert.Equal(t, "Update dependencies", row.Execution.CommitMessage)
		assert.Equal(t, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC), *row.Execution.StartedAt)
		assert.Equal(t, time.Date(2024, 1, 1, 11, 35, 30, 0, time.UTC), *row.Execution.StoppedAt)
	})

	t.Run("ReturnsPlaceholderRowIfPipelineNeverRan", func(t *testing.T) {

		client := getHappyPathClient()
		client.getLatestExecution = func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
			return nil, nil
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.False(t, row.Degraded)
		assert.Equal(t, api.StatusUnknown, row.Execution.Status)
		assert.Nil(t, row.Execution.StartedAt)
		assert.Nil(t, row.Execution.StoppedAt)
		assert.Equal(t, api.CommitMessageUnavailable, row.Execution.CommitMessage)
	})

	t.Run("LeavesStoppedAtEmptyForInProgressExecution", func(t *testing.T) {

		started := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)
		client := getHappyPathClient()
		client.getLatestExecution = func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
			return &types.PipelineExecutionSummary{
				PipelineExecutionId: aws.String("exec-1"),
				Status:              types.PipelineExecutionStatusInProgress,
				StartTime:           aws.Time(started),
				LastUpdateTime:      aws.Time(started.Add(time.Minute)),
			}, nil
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.Equal(t, api.StatusInProgress, row.Execution.Status)
		assert.NotNil(t, row.Execution.StartedAt)
		assert.Nil(t, row.Execution.StoppedAt)
	})

	t.Run("DegradesBranchToUnknownIfBranchFetchFails", func(t *testing.T) {

		client := getHappyPathClient()
		client.getPipelineBranch = func(ctx context.Context, pipelineName string) (string, error) {
			return "", errors.New("access denied")
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.True(t, row.Degraded)
		assert.Contains(t, row.DegradedReason, "branch")
		assert.Equal(t, api.BranchUnknown, row.Execution.Branch)
		// the rest of the row is still enriched
		assert.Equal(t, api.StatusSucceeded, row.Execution.Status)
		assert.Equal(t, "Update dependencies", row.Execution.CommitMessage)
	})

	t.Run("UsesBranchUnknownIfNoBranchIsConfigured", func(t *testing.T) {

		client := getHappyPathClient()
		client.getPipelineBranch = func(ctx context.Context, pipelineName string) (string, error) {
			return "", nil
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.False(t, row.Degraded)
		assert.Equal(t, api.BranchUnknown, row.Execution.Branch)
	})

	t.Run("DegradesWholeRowIfExecutionListingFails", func(t *testing.T) {

		client := getHappyPathClient()
		client.getLatestExecution = func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
			return nil, errors.New("throttled")
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.True(t, row.Degraded)
		assert.Contains(t, row.DegradedReason, "executions")
		assert.Equal(t, api.StatusUnknown, row.Execution.Status)
		assert.Nil(t, row.Execution.StartedAt)
	})

	t.Run("DegradesCommitMessageIfDetailFetchFails", func(t *testing.T) {

		client := getHappyPathClient()
		client.getCommitMessage = func(ctx context.Context, pipelineName, executionID string) (string, error) {
			return "", errors.New("detail unavailable")
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.True(t, row.Degraded)
		assert.Contains(t, row.DegradedReason, "commit message")
		assert.Equal(t, api.CommitMessageUnavailable, row.Execution.CommitMessage)
		assert.Equal(t, api.StatusSucceeded, row.Execution.Status)
	})

	t.Run("RecordsAllDegradationReasons", func(t *testing.T) {

		client := getHappyPathClient()
		client.getPipelineBranch = func(ctx context.Context, pipelineName string) (string, error) {
			return "", errors.New("access denied")
		}
		client.getCommitMessage = func(ctx context.Context, pipelineName, executionID string) (string, error) {
			return "", errors.New("detail unavailable")
		}
		service, _ := NewService(client, time.Second, 1)

		// act
		row := service.Enrich(context.Background(), api.PipelineSummary{Name: "core-service-1"})

		assert.True(t, row.Degraded)
		assert.Contains(t, row.DegradedReason, "branch")
		assert.Contains(t, row.DegradedReason, "commit message")
	})
}

func TestEnrichAll(t *testing.T) {

	t.Run("ReturnsOneRowPerPipelineInInputOrder", func(t *testing.T) {

		service, _ := NewService(getHappyPathClient(), time.Second, 4)

		summaries := []api.PipelineSummary{}
		for i := 0; i < 25; i++ {
			summaries = append(summaries, api.PipelineSummary{Name: fmt.Sprintf("core-service-%v", i)})
		}

		// act
		rows := service.EnrichAll(context.Background(), summaries)

		assert.Equal(t, len(summaries), len(rows))
		for i, row := range rows {
			assert.Equal(t, summaries[i].Name, row.Pipeline.Name)
		}
	})

	t.Run("ContinuesWithRemainingPipelinesIfOneDegrades", func(t *testing.T) {

		client := getHappyPathClient()
		client.getLatestExecution = func(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
			if pipelineName == "core-service-2" {
				return nil, errors.New("throttled")
			}
			return getHappyPathClient().getLatestExecution(ctx, pipelineName)
		}
		service, _ := NewService(client, time.Second, 1)

		summaries := []api.PipelineSummary{
			{Name: "core-service-1"},
			{Name: "core-service-2"},
			{Name: "core-service-3"},
		}

		// act
		rows := service.EnrichAll(context.Background(), summaries)

		assert.Equal(t, 3, len(rows))
		assert.False(t, rows[0].Degraded)
		assert.True(t, rows[1].Degraded)
		assert.False(t, rows[2].Degraded)
	})

	t.Run("ReturnsEmptySliceForNoPipelines", func(t *testing.T) {

		service, _ := NewService(getHappyPathClient(), time.Second, 4)

		// act
		rows := service.EnrichAll(context.Background(), []api.PipelineSummary{})

		assert.Empty(t, rows)
	})
}
