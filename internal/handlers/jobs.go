package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/pkg/errs"
	"github.com/brightloop/geoscore-backend/internal/queue"
	"github.com/brightloop/geoscore-backend/internal/repos"
)

type JobsHandler struct {
	queue *queue.Manager
}

func NewJobsHandler(q *queue.Manager) *JobsHandler {
	return &JobsHandler{queue: q}
}

type createJobRequest struct {
	BrandID        uuid.UUID   `json:"brand_id" binding:"required"`
	JobType        string      `json:"job_type" binding:"required"`
	Payload        any         `json:"payload"`
	Priority       *int        `json:"priority"`
	DependsOn      []uuid.UUID `json:"depends_on"`
	IdempotencyKey string      `json:"idempotency_key"`
	MaxRetries     *int        `json:"max_retries"`
}

// POST /api/jobs
func (h *JobsHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.queue.Enqueue(c.Request.Context(), queue.EnqueueParams{
		BrandID:        req.BrandID,
		JobType:        req.JobType,
		Payload:        req.Payload,
		Priority:       req.Priority,
		DependsOn:      req.DependsOn,
		IdempotencyKey: req.IdempotencyKey,
		MaxRetries:     req.MaxRetries,
	})
	if err != nil {
		var dup *queue.DuplicateJobError
		switch {
		case errors.As(err, &dup):
			c.JSON(http.StatusConflict, gin.H{"job": job, "duplicate": true})
		case errors.Is(err, errs.ErrNotFound):
			RespondError(c, http.StatusNotFound, "brand_not_found", err)
		case errors.Is(err, errs.ErrInvalidArgument):
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
		default:
			RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		}
		return
	}
	RespondCreated(c, gin.H{"job": job})
}

// GET /api/jobs/next?types=normalize,embed
// Claim endpoint for out-of-process workers (the crawler claims its jobs
// here). Returns {"job": null} when nothing is claimable.
func (h *JobsHandler) Next(c *gin.Context) {
	var jobTypes []string
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				jobTypes = append(jobTypes, t)
			}
		}
	}
	job, err := h.queue.ClaimNext(c.Request.Context(), jobTypes)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidArgument) {
			RespondError(c, http.StatusBadRequest, "invalid_job_type", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "claim_failed", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

type updateJobRequest struct {
	Status       string `json:"status"`
	Result       any    `json:"result"`
	ErrorMessage string `json:"error"`
	Progress     *int   `json:"progress"`
}

// PUT /api/jobs/:id
func (h *JobsHandler) Update(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.queue.Update(c.Request.Context(), jobID, queue.UpdateParams{
		Status:       req.Status,
		Result:       req.Result,
		ErrorMessage: req.ErrorMessage,
		Progress:     req.Progress,
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		case errors.Is(err, errs.ErrInvalidArgument):
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
		default:
			RespondError(c, http.StatusInternalServerError, "update_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"job": job})
}

type retryJobRequest struct {
	Reason string `json:"reason"`
}

// POST /api/jobs/:id/retry
func (h *JobsHandler) Retry(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var req retryJobRequest
	_ = c.ShouldBindJSON(&req)
	job, err := h.queue.Retry(c.Request.Context(), jobID, req.Reason)
	if err != nil {
		var exhausted *queue.RetryExhaustedError
		switch {
		case errors.As(err, &exhausted):
			RespondError(c, http.StatusBadRequest, "retries_exhausted", err)
		case errors.Is(err, errs.ErrNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		default:
			RespondError(c, http.StatusInternalServerError, "retry_failed", err)
		}
		return
	}
	RespondCreated(c, gin.H{"job": job, "new_job_id": job.ID})
}

// DELETE /api/jobs/:id
func (h *JobsHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	if err := h.queue.Cancel(c.Request.Context(), jobID, c.Query("reason")); err != nil {
		var notCancelable *queue.NotCancelableError
		switch {
		case errors.As(err, &notCancelable):
			RespondError(c, http.StatusConflict, "not_cancelable", err)
		case errors.Is(err, errs.ErrNotFound):
			RespondError(c, http.StatusNotFound, "job_not_found", err)
		default:
			RespondError(c, http.StatusInternalServerError, "cancel_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"canceled": true})
}

// GET /api/jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.queue.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs?brand_id=&type=&status=&limit=&offset=
func (h *JobsHandler) List(c *gin.Context) {
	filter := repos.JobListFilter{
		JobType: c.Query("type"),
		Status:  c.Query("status"),
	}
	if raw := c.Query("brand_id"); raw != "" {
		brandID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_brand_id", err)
			return
		}
		filter.BrandID = &brandID
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))
	jobs, err := h.queue.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs, "count": len(jobs)})
}

// GET /api/jobs/stats
func (h *JobsHandler) Stats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}
