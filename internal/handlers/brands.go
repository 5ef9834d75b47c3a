package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/pkg/dbctx"
	"github.com/brightloop/geoscore-backend/internal/repos"
	"github.com/brightloop/geoscore-backend/internal/types"
)

type BrandsHandler struct {
	brands  repos.BrandRepo
	scores  repos.ScoreRepo
	reports repos.ReportRepo
}

func NewBrandsHandler(brands repos.BrandRepo, scores repos.ScoreRepo, reports repos.ReportRepo) *BrandsHandler {
	return &BrandsHandler{brands: brands, scores: scores, reports: reports}
}

type createBrandRequest struct {
	Name        string   `json:"name" binding:"required"`
	Domain      string   `json:"domain" binding:"required"`
	Competitors []string `json:"competitors"`
}

// POST /api/brands
func (h *BrandsHandler) Create(c *gin.Context) {
	var req createBrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	brand := &types.Brand{
		Name:   req.Name,
		Domain: req.Domain,
	}
	if len(req.Competitors) > 0 {
		brand.Competitors = types.MustJSON(req.Competitors)
	}
	created, err := h.brands.Create(dbctx.New(c.Request.Context()), brand)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}
	RespondCreated(c, gin.H{"brand": created})
}

// GET /api/brands?limit=&offset=
func (h *BrandsHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	brands, err := h.brands.List(dbctx.New(c.Request.Context()), limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"brands": brands, "count": len(brands)})
}

// GET /api/brands/:id
func (h *BrandsHandler) Get(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_brand_id", err)
		return
	}
	brand, err := h.brands.GetByID(dbctx.New(c.Request.Context()), brandID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if brand == nil {
		RespondError(c, http.StatusNotFound, "brand_not_found", errors.New("brand not found"))
		return
	}
	RespondOK(c, gin.H{"brand": brand})
}

// GET /api/brands/:id/score
func (h *BrandsHandler) LatestScore(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_brand_id", err)
		return
	}
	score, err := h.scores.GetLatestByBrand(dbctx.New(c.Request.Context()), brandID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if score == nil {
		RespondError(c, http.StatusNotFound, "score_not_found", errors.New("no score for brand"))
		return
	}
	RespondOK(c, gin.H{"score": score})
}

// GET /api/brands/:id/report
func (h *BrandsHandler) LatestReport(c *gin.Context) {
	brandID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_brand_id", err)
		return
	}
	report, err := h.reports.GetLatestByBrand(dbctx.New(c.Request.Context()), brandID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if report == nil {
		RespondError(c, http.StatusNotFound, "report_not_found", errors.New("no report for brand"))
		return
	}
	RespondOK(c, gin.H{"report": report})
}
