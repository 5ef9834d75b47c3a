package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pipeline/embed"
	"github.com/brightloop/geoscore-backend/internal/pipeline/normalize"
	"github.com/brightloop/geoscore-backend/internal/pipeline/report"
	"github.com/brightloop/geoscore-backend/internal/pipeline/sample"
	"github.com/brightloop/geoscore-backend/internal/pipeline/score"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/queue"
	"github.com/brightloop/geoscore-backend/internal/runner"
)

type Services struct {
	Queue  *queue.Manager
	Runner *runner.Runner
}

// wireServices builds the queue manager and, when enabled, the runner with
// every in-process stage registered. Crawl jobs are not registered here:
// the crawler is a separate process that claims over HTTP.
func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	q := queue.NewManager(db, log, r.Jobs, r.Brands, clients.Redis, cfg.StaleRunning)
	services := Services{Queue: q}
	if !cfg.RunnerEnabled {
		return services, nil
	}

	registry := runtime.NewRegistry()
	stageHandlers := []runtime.Handler{
		normalize.NewHandler(log, clients.Blob, r.Brands, r.Entries, r.Claims),
		embed.NewHandler(log, clients.OpenAI, r.Brands, r.Entries, r.Claims, r.Chunks, r.Embeddings),
		sample.NewHandler(log, clients.OpenAI, r.Responses),
		score.NewHandler(log, r.Brands, r.Responses, r.Scores),
		report.NewHandler(log, clients.Blob, r.Brands, r.Scores, r.Reports),
	}
	for _, h := range stageHandlers {
		if err := registry.Register(h); err != nil {
			return services, fmt.Errorf("register handler: %w", err)
		}
	}

	policies, err := runner.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		return services, fmt.Errorf("load runner policies: %w", err)
	}
	services.Runner = runner.New(log, q, registry, cfg.Runner, policies)
	return services, nil
}
