package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightloop/geoscore-backend/internal/runner"
)

type HealthHandler struct {
	runner *runner.Runner
}

func NewHealthHandler(r *runner.Runner) *HealthHandler {
	return &HealthHandler{runner: r}
}

// GET /api/healthz
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.runner != nil {
		resp["runner"] = h.runner.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}
