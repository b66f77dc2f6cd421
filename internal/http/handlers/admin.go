package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type AdminHandler struct {
	log   *logger.Logger
	jobs  services.JobService
	syncs services.SyncService
}

func NewAdminHandler(log *logger.Logger, jobs services.JobService, syncs services.SyncService) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), jobs: jobs, syncs: syncs}
}

type syncRequest struct {
	Term  int        `json:"term"`
	Limit int        `json:"limit"`
	Since *time.Time `json:"since"`
}

type rclEnrichRequest struct {
	BillID *uuid.UUID `json:"bill_id"`
	Limit  int        `json:"limit"`
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, out any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// POST /api/admin/sync
func (h *AdminHandler) TriggerSync(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	var req syncRequest
	if err := bindOptional(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Term < 0 || req.Limit < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("term and limit must not be negative"))
		return
	}
	payload := map[string]any{"trigger": types.SyncTriggerManual}
	if req.Term > 0 {
		payload["term"] = req.Term
	}
	if req.Limit > 0 {
		payload["limit"] = req.Limit
	}
	if req.Since != nil {
		payload["since"] = req.Since.UTC().Format(time.RFC3339)
	}
	job, created, err := h.jobs.EnqueueIfIdle(dbc(c), &userID, services.JobTypeBillSync, payload)
	if err != nil {
		response.RespondAPIError(c, err, "enqueue_sync_failed")
		return
	}
	if !created {
		response.RespondAPIError(c, services.ErrSyncInProgress, "sync_in_progress")
		return
	}
	h.log.Info("sync enqueued", "job_id", job.ID, "user_id", userID)
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/admin/rcl/enrich
func (h *AdminHandler) TriggerRCLEnrich(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		response.RespondAPIError(c, err, "unauthorized")
		return
	}
	var req rclEnrichRequest
	if err := bindOptional(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	payload := map[string]any{}
	if req.BillID != nil && *req.BillID != uuid.Nil {
		payload["bill_id"] = req.BillID.String()
	}
	if req.Limit > 0 {
		payload["limit"] = req.Limit
	}
	job, err := h.jobs.Enqueue(dbc(c), &userID, services.JobTypeRCLEnrich, payload)
	if err != nil {
		response.RespondAPIError(c, err, "enqueue_rcl_enrich_failed")
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// GET /api/admin/jobs/:id
func (h *AdminHandler) GetJob(c *gin.Context) {
	id, err := uuidParam(c, "id", "invalid_job_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_job_id")
		return
	}
	job, err := h.jobs.GetByID(dbc(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_job_failed")
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/admin/jobs?type=bill_sync&limit=20
func (h *AdminHandler) ListJobs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_limit")
		return
	}
	jobs, err := h.jobs.ListRecent(dbc(c), c.Query("type"), limit)
	if err != nil {
		response.RespondAPIError(c, err, "list_jobs_failed")
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/admin/sync-runs
func (h *AdminHandler) ListSyncRuns(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_page")
		return
	}
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_page_size")
		return
	}
	runs, err := h.syncs.ListRuns(dbc(c), page, pageSize)
	if err != nil {
		response.RespondAPIError(c, err, "list_sync_runs_failed")
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}
