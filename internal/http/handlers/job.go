package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domjobs "github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/http/middleware"
	"github.com/soulkun/soulkun-backend/internal/http/response"
	"github.com/soulkun/soulkun-backend/internal/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type JobHandler struct {
	log      *logger.Logger
	runs     repos.JobRunRepo
	registry *jobs.Registry
}

func NewJobHandler(baseLog *logger.Logger, runs repos.JobRunRepo, registry *jobs.Registry) *JobHandler {
	return &JobHandler{
		log:      baseLog.With("handler", "JobHandler"),
		runs:     runs,
		registry: registry,
	}
}

type enqueueJobRequest struct {
	OrganizationID string `json:"organization_id"`
}

type enqueueJobResponse struct {
	ID      uuid.UUID `json:"id"`
	JobType string    `json:"job_type"`
	Status  string    `json:"status"`
}

// EnqueueJob queues one maintenance run for a tenant. The target organization
// comes from the request body, or from the service token when the body omits
// it.
func (h *JobHandler) EnqueueJob(c *gin.Context) {
	jobType := c.Param("type")
	if !h.registry.Has(jobType) {
		response.RespondError(c, http.StatusNotFound, "unknown_job_type",
			errors.New("unknown job type: "+jobType))
		return
	}

	// An empty body is fine: the tenant then comes from the token claims.
	var req enqueueJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	orgID := uuid.Nil
	if req.OrganizationID != "" {
		parsed, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "bad_organization_id", err)
			return
		}
		orgID = parsed
	} else if tokenOrg, ok := middleware.OrgIDFromContext(c); ok {
		orgID = tokenOrg
	}
	if orgID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "missing_organization_id",
			errors.New("organization_id required in body or token"))
		return
	}

	payload, err := json.Marshal(jobs.Payload{OrganizationID: orgID})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	run := &types.JobRun{
		OrganizationID: &orgID,
		JobType:        jobType,
		Status:         domjobs.StatusQueued,
		Payload:        payload,
	}
	rows, err := h.runs.Create(dbctx.Context{Ctx: c.Request.Context()}, []*types.JobRun{run})
	if err != nil {
		h.log.Error("Failed to enqueue job", "job_type", jobType, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	h.log.Info("Job enqueued", "job_type", jobType, "job_id", rows[0].ID, "organization_id", orgID)
	response.RespondAccepted(c, enqueueJobResponse{
		ID:      rows[0].ID,
		JobType: rows[0].JobType,
		Status:  rows[0].Status,
	})
}

// GetJob returns one run's current state.
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_job_id", err)
		return
	}
	run, err := h.runs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("job not found"))
		return
	}
	response.RespondOK(c, run)
}
