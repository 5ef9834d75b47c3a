package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/brightloop/geoscore-backend/internal/handlers"
	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
)

type RouterConfig struct {
	JobsHandler   *handlers.JobsHandler
	BrandsHandler *handlers.BrandsHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("geoscore"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	api := router.Group("/api")
	{
		api.GET("/healthz", cfg.HealthHandler.Health)

		// Jobs. /next and /stats are registered before /:id so gin does not
		// shadow them with the parameter route.
		api.POST("/jobs", cfg.JobsHandler.Create)
		api.GET("/jobs", cfg.JobsHandler.List)
		api.GET("/jobs/next", cfg.JobsHandler.Next)
		api.GET("/jobs/stats", cfg.JobsHandler.Stats)
		api.GET("/jobs/:id", cfg.JobsHandler.Get)
		api.PUT("/jobs/:id", cfg.JobsHandler.Update)
		api.POST("/jobs/:id/retry", cfg.JobsHandler.Retry)
		api.DELETE("/jobs/:id", cfg.JobsHandler.Cancel)

		// Brands and read models.
		api.POST("/brands", cfg.BrandsHandler.Create)
		api.GET("/brands", cfg.BrandsHandler.List)
		api.GET("/brands/:id", cfg.BrandsHandler.Get)
		api.GET("/brands/:id/score", cfg.BrandsHandler.LatestScore)
		api.GET("/brands/:id/report", cfg.BrandsHandler.LatestReport)
	}

	return router
}

func corsOrigins() []string {
	raw := envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173")
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
