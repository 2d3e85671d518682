package enricher

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kulu-ops/codepipeline-monitor/api"
	"github.com/kulu-ops/codepipeline-monitor/clients/codepipeline"
)

// Service is the interface for enriching filtered pipelines with their
// configured branch and latest execution state
type Service interface {
	Enrich(ctx context.Context, summary api.PipelineSummary) api.ReportRow
	EnrichAll(ctx context.Context, summaries []api.PipelineSummary) []api.ReportRow
}

// NewService returns a new enricher.Service running at most maxParallel
// enrichments concurrently
func NewService(codepipelineClient codepipeline.Client, requestTimeout time.Duration, maxParallel int) (Service, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}

	return &service{
		codepipelineClient: codepipelineClient,
		requestTimeout:     requestTimeout,
		maxParallel:        maxParallel,
	}, nil
}

type service struct {
	codepipelineClient codepipeline.Client
	requestTimeout     time.Duration
	maxParallel        int
}

// EnrichAll enriches every pipeline and returns one row per pipeline in the
// same order as the passed summaries; rows are written by index so parallel
// completion order can't reshuffle the report
func (s *service) EnrichAll(ctx context.Context, summaries []api.PipelineSummary) []api.ReportRow {
	rows := make([]api.ReportRow, len(summaries))

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for i, summary := range summaries {
		g.Go(func() error {
			rows[i] = s.Enrich(ctx, summary)
			return nil
		})
	}
	_ = g.Wait()

	return rows
}

// Enrich never fails the run; any error fetching this pipeline's branch,
// executions or commit message degrades the row to placeholder values and is
// recorded on the row, so one misbehaving pipeline can't hide the others
func (s *service) Enrich(ctx context.Context, summary api.PipelineSummary) api.ReportRow {
	row := api.ReportRow{
		Pipeline: summary,
		Execution: api.ExecutionInfo{
			PipelineName:  summary.Name,
			Branch:        api.BranchUnknown,
			Status:        api.StatusUnknown,
			CommitMessage: api.CommitMessageUnavailable,
		},
	}

	branch, err := s.getPipelineBranch(ctx, summary.Name)
	if err != nil {
		s.degrade(&row, "branch", err)
	} else if branch != "" {
		row.Execution.Branch = branch
	}

	execution, err := s.getLatestExecution(ctx, summary.Name)
	if err != nil {
		s.degrade(&row, "executions", err)
		return row
	}
	if execution == nil {
		// the pipeline has never run; keep the placeholder values
		return row
	}

	row.Execution.Status = api.ParseStatus(string(execution.Status))
	row.Execution.StartedAt = execution.StartTime
	if row.Execution.Status != api.StatusInProgress {
		row.Execution.StoppedAt = execution.LastUpdateTime
	}

	executionID := aws.ToString(execution.PipelineExecutionId)
	if executionID == "" {
		return row
	}

	commitMessage, err := s.getCommitMessage(ctx, summary.Name, executionID)
	if err != nil {
		s.degrade(&row, "commit message", err)
	} else if commitMessage != "" {
		row.Execution.CommitMessage = commitMessage
	}

	return row
}

func (s *service) getPipelineBranch(ctx context.Context, pipelineName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	return s.codepipelineClient.GetPipelineBranch(ctx, pipelineName)
}

func (s *service) getLatestExecution(ctx context.Context, pipelineName string) (*types.PipelineExecutionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	return s.codepipelineClient.GetLatestExecution(ctx, pipelineName)
}

func (s *service) getCommitMessage(ctx context.Context, pipelineName, executionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	return s.codepipelineClient.GetCommitMessage(ctx, pipelineName, executionID)
}

func (s *service) degrade(row *api.ReportRow, part string, err error) {
	log.Warn().Err(err).Msgf("Failed getting %v for pipeline %v, continuing with placeholder values", part, row.Pipeline.Name)

	row.Degraded = true
	reason := fmt.Sprintf("%v: %v", part, err)
	if row.DegradedReason != "" {
		row.DegradedReason += "; " + reason
		return
	}
	row.DegradedReason = reason
}
