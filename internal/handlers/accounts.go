// Package handlers is the thin Gin layer over the store/search/jobs
// packages — out of scope for "hard engineering" per the archiver's purpose
// statement, kept minimal: one struct per resource, RegisterRoutes on a
// *gin.RouterGroup, utils.Success/Error envelopes.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mail-archiver/mail-archiver/internal/jobs"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
	"github.com/mail-archiver/mail-archiver/internal/store"
	"github.com/mail-archiver/mail-archiver/internal/utils"
)

type AccountHandler struct {
	gateway       *store.Gateway
	factory       *provider.Factory
	accountDelete *jobs.Queue
}

func NewAccountHandler(gateway *store.Gateway, factory *provider.Factory, accountDelete *jobs.Queue) *AccountHandler {
	return &AccountHandler{gateway: gateway, factory: factory, accountDelete: accountDelete}
}

func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:id", h.Get)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.GET("/:id/stats", h.Stats)
	r.POST("/:id/test-connection", h.TestConnection)
}

func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.gateway.ListAccounts(c.Request.Context())
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list accounts", err)
		return
	}
	utils.SuccessData(c, accounts)
}

func (h *AccountHandler) Create(c *gin.Context) {
	var acc models.MailAccount
	if err := c.ShouldBindJSON(&acc); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid account payload", err)
		return
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.Provider == "" {
		utils.Error(c, http.StatusBadRequest, "provider is required", nil)
		return
	}

	if err := h.gateway.UpsertAccount(c.Request.Context(), &acc); err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to create account", err)
		return
	}

	_ = h.gateway.AccessLog(c.Request.Context(), models.AccessLog{
		ID: uuid.NewString(), AccountID: &acc.ID, Actor: "api", Action: "account.create", Target: acc.ID,
	})
	utils.Success(c, http.StatusCreated, "account created", acc)
}

func (h *AccountHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	acc, err := h.gateway.FindAccount(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "account not found", err)
		return
	}
	utils.SuccessData(c, acc)
}

func (h *AccountHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	acc, err := h.gateway.FindAccount(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "account not found", err)
		return
	}
	if err := c.ShouldBindJSON(acc); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid account payload", err)
		return
	}
	acc.ID = id

	if err := h.gateway.UpsertAccount(c.Request.Context(), acc); err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to update account", err)
		return
	}
	utils.SuccessData(c, acc)
}

// Delete doesn't delete synchronously: it submits an account_delete job so
// the emails/attachments purge follows the serialized phases in spec §4.G
// (cancel running sync -> clear locks -> batch-delete -> delete account row).
func (h *AccountHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := h.gateway.FindAccount(c.Request.Context(), id); err != nil {
		utils.Error(c, http.StatusNotFound, "account not found", err)
		return
	}

	jobID, err := h.accountDelete.Submit(c.Request.Context(), &id, "")
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to submit account delete job", err)
		return
	}

	_ = h.gateway.AccessLog(c.Request.Context(), models.AccessLog{
		ID: uuid.NewString(), AccountID: &id, Actor: "api", Action: "account.delete.submit", Target: jobID,
	})
	utils.Success(c, http.StatusAccepted, "account delete job submitted", gin.H{"job_id": jobID})
}

func (h *AccountHandler) Stats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	stats, err := h.gateway.AccountStats(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "account not found", err)
		return
	}
	utils.SuccessData(c, stats)
}

// TestConnection exercises the provider's TestConnection without persisting
// anything (spec §4.D; also supported for Graph per §9).
func (h *AccountHandler) TestConnection(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	acc, err := h.gateway.FindAccount(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, http.StatusNotFound, "account not found", err)
		return
	}
	if h.factory == nil {
		utils.Error(c, http.StatusServiceUnavailable, "connection testing unavailable", nil)
		return
	}
	adapter, err := h.factory.Build(acc)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to build provider adapter", err)
		return
	}
	defer adapter.Close()
	if err := adapter.TestConnection(c.Request.Context()); err != nil {
		utils.Error(c, http.StatusBadGateway, "connection test failed", err)
		return
	}
	utils.SuccessData(c, gin.H{"ok": true})
}
