package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kingpin"
	foundation "github.com/estafette/estafette-foundation"
	"github.com/rs/zerolog/log"

	"github.com/kulu-ops/codepipeline-monitor/api"
	"github.com/kulu-ops/codepipeline-monitor/clients/codepipeline"
	"github.com/kulu-ops/codepipeline-monitor/config"
	"github.com/kulu-ops/codepipeline-monitor/services/enricher"
	"github.com/kulu-ops/codepipeline-monitor/services/lister"
	"github.com/kulu-ops/codepipeline-monitor/services/render"
)

var (
	appgroup  string
	app       string
	version   string
	branch    string
	revision  string
	buildDate string
)

var (
	filters = kingpin.Flag("filters", "Substring filter to match pipeline names against; repeat the flag for multiple filters.").Short('f').Strings()
)

func main() {

	// parse command line parameters
	kingpin.Parse()

	// init log format from envvar ESTAFETTE_LOG_FORMAT
	foundation.InitLoggingFromEnv(foundation.NewApplicationInfo(appgroup, app, version, branch, revision, buildDate))

	ctx := context.Background()

	cfg := config.MustParse()

	codepipelineAPI, err := codepipeline.NewAPIFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing AWS CodePipeline client")
	}
	codepipelineClient, err := codepipeline.NewClient(codepipelineAPI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing codepipeline client")
	}

	listerService, err := lister.NewService(codepipelineClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing lister service")
	}
	enricherService, err := enricher.NewService(codepipelineClient, cfg.RequestTimeout, cfg.MaxParallel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing enricher service")
	}
	renderService, err := render.NewService(os.Stdout, cfg.CommitMessageWidth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing render service")
	}

	resolvedFilters := api.ResolveFilters(*filters, cfg.DefaultFilter)

	listCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	summaries, err := listerService.ListPipelines(listCtx, resolvedFilters)
	cancel()
	if err != nil {
		// without a complete pipeline set the filtered set is unknowable, so
		// no partial table gets rendered
		log.Fatal().Err(err).Msg("Failed listing pipelines")
	}

	rows := enricherService.EnrichAll(ctx, summaries)

	renderService.RenderReport(rows, resolvedFilters, time.Now())
}
