package lister

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/kulu-ops/codepipeline-monitor/api"
	"github.com/kulu-ops/codepipeline-monitor/clients/codepipeline"
)

// Service is the interface for enumerating the pipelines known to the remote
// service and retaining the ones matching the active filters
type Service interface {
	ListPipelines(ctx context.Context, filters api.FilterSet) ([]api.PipelineSummary, error)
}

// NewService returns a new lister.Service
func NewService(codepipelineClient codepipeline.Client) (Service, error) {
	return &service{
		codepipelineClient: codepipelineClient,
	}, nil
}

type service struct {
	codepipelineClient codepipeline.Client
}

// ListPipelines returns the filtered pipelines in remote-reported order; an
// error from the listing call is returned as is, since a partial pipeline set
// would silently hide pipelines from the report
func (s *service) ListPipelines(ctx context.Context, filters api.FilterSet) ([]api.PipelineSummary, error) {
	names, err := s.codepipelineClient.ListPipelineNames(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]api.PipelineSummary, 0, len(names))
	for _, name := range names {
		if !filters.Matches(name) {
			continue
		}
		summaries = append(summaries, api.PipelineSummary{
			Name: name,
		})
	}

	log.Debug().Msgf("Retained %v of %v pipelines after filtering", len(summaries), len(names))

	return summaries, nil
}
