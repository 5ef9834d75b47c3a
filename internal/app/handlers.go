package app

import (
	"github.com/gin-gonic/gin"

	"github.com/brightloop/geoscore-backend/internal/handlers"
	"github.com/brightloop/geoscore-backend/internal/pkg/logger"
	"github.com/brightloop/geoscore-backend/internal/server"
)

type Handlers struct {
	Jobs   *handlers.JobsHandler
	Brands *handlers.BrandsHandler
	Health *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, r Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Jobs:   handlers.NewJobsHandler(services.Queue),
		Brands: handlers.NewBrandsHandler(r.Brands, r.Scores, r.Reports),
		Health: handlers.NewHealthHandler(services.Runner),
	}
}

func wireRouter(h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		JobsHandler:   h.Jobs,
		BrandsHandler: h.Brands,
		HealthHandler: h.Health,
	})
}
