package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mail-archiver/mail-archiver/internal/jobs"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/store"
	"github.com/mail-archiver/mail-archiver/internal/utils"
)

// JobHandler exposes Submit/Get/Cancel/ListActive/ListAll (spec §4.G) over
// whichever of the five typed queues the route names.
type JobHandler struct {
	gateway *store.Gateway
	queues  map[models.JobKind]*jobs.Queue
}

func NewJobHandler(gateway *store.Gateway, o *jobs.Orchestrator) *JobHandler {
	return &JobHandler{
		gateway: gateway,
		queues: map[models.JobKind]*jobs.Queue{
			models.JobKindSync:          o.Sync,
			models.JobKindRestore:       o.Restore,
			models.JobKindExport:        o.Export,
			models.JobKindImport:        o.Import,
			models.JobKindAccountDelete: o.AccountDelete,
		},
	}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/:kind", h.Submit)
	r.GET("/:kind", h.ListAll)
	r.GET("/:kind/active", h.ListActive)
	r.GET("/:kind/:id", h.Get)
	r.POST("/:kind/:id/cancel", h.Cancel)
}

type submitRequest struct {
	AccountID *string `json:"account_id"`
	Payload   string  `json:"payload"`
}

func (h *JobHandler) queueFor(c *gin.Context) (*jobs.Queue, bool) {
	kind := models.JobKind(strings.TrimSpace(c.Param("kind")))
	q, ok := h.queues[kind]
	if !ok {
		utils.Error(c, http.StatusNotFound, "unknown job kind", nil)
		return nil, false
	}
	return q, true
}

func (h *JobHandler) Submit(c *gin.Context) {
	q, ok := h.queueFor(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid submit payload", err)
		return
	}

	jobID, err := q.Submit(c.Request.Context(), req.AccountID, req.Payload)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to submit job", err)
		return
	}

	_ = h.gateway.AccessLog(c.Request.Context(), models.AccessLog{
		ID: uuid.NewString(), AccountID: req.AccountID, Actor: "api",
		Action: "job.submit", Target: jobID,
	})
	utils.Success(c, http.StatusAccepted, "job submitted", gin.H{"job_id": jobID})
}

func (h *JobHandler) Get(c *gin.Context) {
	q, ok := h.queueFor(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	job, err := q.Get(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "job not found", err)
		return
	}
	utils.SuccessData(c, job)
}

func (h *JobHandler) Cancel(c *gin.Context) {
	q, ok := h.queueFor(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if err := q.Cancel(c.Request.Context(), id); err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to cancel job", err)
		return
	}

	_ = h.gateway.AccessLog(c.Request.Context(), models.AccessLog{
		ID: uuid.NewString(), Actor: "api", Action: "job.cancel", Target: id,
	})
	utils.SuccessData(c, gin.H{"cancelled": true})
}

func (h *JobHandler) ListActive(c *gin.Context) {
	q, ok := h.queueFor(c)
	if !ok {
		return
	}
	list, err := q.ListActive(c.Request.Context())
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list active jobs", err)
		return
	}
	utils.SuccessData(c, list)
}

func (h *JobHandler) ListAll(c *gin.Context) {
	q, ok := h.queueFor(c)
	if !ok {
		return
	}
	list, err := q.ListAll(c.Request.Context())
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list jobs", err)
		return
	}
	utils.SuccessData(c, list)
}
